// collide loads a scene, runs collision detection and prints the pairs and
// contacts it finds. With -watch it keeps running and applies config edits
// as they are saved.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collide3d/internal/collision"
	"collide3d/internal/config"
	"collide3d/internal/narrowphase"
	"collide3d/internal/physics"
	"collide3d/internal/scene"
)

var (
	configPath = flag.String("config", "", "YAML config file (defaults when empty)")
	scenePath  = flag.String("scene", "scene.json", "JSON scene file")
	watch      = flag.Bool("watch", false, "Keep running and reload the config on change")
	interval   = flag.Duration("interval", time.Second, "Detection interval in watch mode")
	narrow     = flag.String("narrow", "gjk", "Narrow phase: gjk or primitive")
)

type printer struct{}

func (printer) OnCollisionEnter(a, b *physics.Body) { fmt.Printf("  enter %v %v\n", a, b) }
func (printer) OnCollisionExit(a, b *physics.Body)  { fmt.Printf("  exit  %v %v\n", a, b) }

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal(err)
		}
	}

	f, err := scene.Load(*scenePath)
	if err != nil {
		log.Fatal(err)
	}
	var pool physics.IDPool
	bodies, err := f.Build(&pool, cfg.Margin)
	if err != nil {
		log.Fatal(err)
	}

	opts := []collision.Option{collision.WithListener(printer{})}
	switch *narrow {
	case "gjk":
	case "primitive":
		opts = append(opts, collision.WithNarrowPhase(narrowphase.Primitive{}))
	default:
		log.Fatalf("unknown narrow phase %q", *narrow)
	}
	d, err := collision.New(cfg, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()
	for _, b := range bodies {
		if err := d.AddBody(b); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("%d bodies, broad phase %s, margin %v\n", len(bodies), d.Strategy(), cfg.Margin)

	if err := step(d); err != nil {
		log.Fatal(err)
	}
	if !*watch {
		return
	}
	if *configPath == "" {
		log.Fatal("-watch needs -config")
	}

	w, err := config.Watch(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case next, ok := <-w.Updates:
			if !ok {
				return
			}
			if err := d.Reconfigure(next); err != nil {
				log.Printf("config: %v", err)
				continue
			}
			if err := step(d); err != nil {
				log.Fatal(err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("config: %v", err)
		case <-ticker.C:
			if err := step(d); err != nil {
				log.Fatal(err)
			}
		case <-sigCh:
			return
		}
	}
}

func step(d *collision.Detection) error {
	if err := d.UpdateStale(); err != nil {
		return err
	}
	contacts, err := d.ComputeCollisions()
	if err != nil {
		return err
	}
	pairs, err := d.Pairs()
	if err != nil {
		return err
	}
	fmt.Printf("%d pairs, %d contacts\n", len(pairs), len(contacts))
	for _, c := range contacts {
		fmt.Printf("  %v <-> %v\n", c.Body1, c.Body2)
	}
	return nil
}
