// terractl is a command-line client for a terralink generation service:
// it submits one request, pumps responses until it resolves, and reports
// the outcome.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"terralink/internal/client"
	"terralink/internal/config"
	"terralink/internal/logging"
	"terralink/internal/protocol"
	"terralink/internal/protocol/frame"
	"terralink/internal/transport"
	"terralink/internal/voxel"
)

const usage = `usage: terractl [flags] <command> [args]

commands:
  generators                                 list registered generators
  region <minX> <minY> <minZ> <maxX> <maxY> <maxZ>   generate a region
  brush <x> <y> <z>                          generate one chunk
  add <name> <minHeight> <maxHeight> <block> register a generator

flags:
`

func main() {
	configPath := flag.String("config", "", "path to the client config")
	addr := flag.String("addr", "", "service address (overrides config)")
	generator := flag.String("generator", "", "generator name (overrides config)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logging.ConfigureRuntime("terractl")

	cfg := config.DefaultClientConfig()
	if *configPath != "" {
		loaded, err := config.LoadClientConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load client config")
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Address = *addr
	}
	if *generator != "" {
		cfg.Generator = *generator
	}
	logging.SetLevel(cfg.LogLevel)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	stream, err := net.DialTimeout("tcp", cfg.Address, cfg.DialTimeout)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Address).Msg("failed to dial service")
	}
	conn := transport.NewClient(stream, transportConfig(cfg))
	cl := client.New(conn, client.Options{Hooks: client.Hooks{
		Ack: func(id protocol.RequestID, info string) {
			log.Info().Stringer("request", id).Str("info", info).Msg("request accepted")
		},
		GeneratorList: func(_ protocol.RequestID, names []string) {
			for _, name := range names {
				fmt.Println(name)
			}
		},
		GeneratorConfirmed: func(_ protocol.RequestID, g protocol.GeneratorID) {
			fmt.Printf("generator id %d\n", uint32(g))
		},
	}})
	defer cl.Shutdown()

	if err := run(cl, cfg, args); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// transportConfig maps the loaded client config onto the transport,
// including the per-frame payload cap.
func transportConfig(cfg config.ClientConfig) transport.Config {
	limits := frame.DefaultLimits()
	if cfg.MaxPayloadBytes > 0 {
		limits.MaxPayloadBytes = cfg.MaxPayloadBytes
	}
	return transport.Config{
		QueueDepth: cfg.QueueDepth,
		Limits:     limits,
		Codec:      protocol.Codec{Level: cfg.CompressionLevel},
	}
}

func run(cl *client.Client, cfg config.ClientConfig, args []string) error {
	switch args[0] {
	case "generators":
		sink := client.NewWaitSink()
		if _, err := cl.RequestGenerators(sink); err != nil {
			return err
		}
		return pump(cl, cfg.TickInterval, sink.Done(), sink.Err)

	case "region":
		if len(args) != 7 {
			return fmt.Errorf("region needs 6 coordinates, got %d", len(args)-1)
		}
		coords, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		bounds := voxel.NewBounds(
			voxel.Vec3{X: coords[0], Y: coords[1], Z: coords[2]},
			voxel.Vec3{X: coords[3], Y: coords[4], Z: coords[5]},
		)
		sink, err := client.NewRegionSink(bounds)
		if err != nil {
			return err
		}
		start := time.Now()
		if _, err := cl.GenerateRegion(bounds, cfg.Generator, sink); err != nil {
			return err
		}
		if err := pump(cl, cfg.TickInterval, sink.Done(), sink.Err); err != nil {
			return err
		}
		fmt.Printf("generated %d of %d blocks in %s\n",
			sink.Region().Filled(), bounds.Volume(), time.Since(start).Round(time.Millisecond))
		return nil

	case "brush":
		if len(args) != 4 {
			return fmt.Errorf("brush needs 3 coordinates, got %d", len(args)-1)
		}
		coords, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		pos := voxel.Vec3{X: coords[0], Y: coords[1], Z: coords[2]}
		sink := client.NewChunkSink()
		if _, err := cl.GenerateBrush(pos, cfg.Generator, sink); err != nil {
			return err
		}
		if err := pump(cl, cfg.TickInterval, sink.Done(), sink.Err); err != nil {
			return err
		}
		for _, chunk := range sink.Chunks() {
			solid := 0
			for i := range chunk.Blocks {
				if chunk.Blocks[i] != voxel.BlockEmpty {
					solid++
				}
			}
			fmt.Printf("chunk at (%d,%d,%d): %d solid blocks\n",
				chunk.Anchor.X, chunk.Anchor.Y, chunk.Anchor.Z, solid)
		}
		return nil

	case "add":
		if len(args) != 5 {
			return fmt.Errorf("add needs name, min height, max height and block, got %d args", len(args)-1)
		}
		params, err := parseCoords(args[2:])
		if err != nil {
			return err
		}
		sink := client.NewWaitSink()
		if _, err := cl.AddGenerator(args[1], params[0], params[1], voxel.BlockID(params[2]), sink); err != nil {
			return err
		}
		return pump(cl, cfg.TickInterval, sink.Done(), sink.Err)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// pump drives the client loop until the request resolves.
func pump(cl *client.Client, interval time.Duration, done <-chan struct{}, errFn func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		cl.Tick()
		select {
		case <-done:
			return errFn()
		case <-ticker.C:
		}
	}
}

func parseCoords(args []string) ([]int32, error) {
	out := make([]int32, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("coordinate %q: %w", arg, err)
		}
		out[i] = int32(v)
	}
	return out, nil
}
