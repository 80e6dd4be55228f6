// Command sfxqa auditions procedural audio events and mixer behaviors
// from the terminal: listing the catalog, spamming cooldowns, sweeping
// pan across the screen, ducking a loop and overflowing a bus.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cjswoto/Dotventurer/internal/catalog"
	"github.com/cjswoto/Dotventurer/internal/config"
	"github.com/cjswoto/Dotventurer/internal/mixer"
	"github.com/cjswoto/Dotventurer/internal/output"
	"github.com/cjswoto/Dotventurer/internal/recipe"
	"github.com/cjswoto/Dotventurer/internal/render"
)

var screen = mixer.Point{X: 1920, Y: 1080}

const frame = 16 * time.Millisecond

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: sfxqa [flags] <list|play|play_loop|spam|pan|duck|overflow> [event] [event_b]\n")
		flag.PrintDefaults()
	}
	silent := flag.Bool("silent", false, "run without a real audio device")
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	mode := flag.Arg(0)
	event := argOr(1, "attack_hit")
	eventB := argOr(2, "explosion")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lib, err := loadLibrary(cfg)
	if err != nil {
		log.Fatal(err)
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal(err)
	}

	var out output.Output = output.Noop{}
	if cfg.Enabled && !*silent {
		dev, err := output.NewDevice(cfg.SampleRate, cfg.MaxChannels)
		if err != nil {
			log.Printf("audio init failed (continuing without sound): %v", err)
		} else {
			out = dev
			defer dev.Close()
		}
	}

	m := mixer.New(lib, cat, render.NewRenderer(cfg.SampleRate), out, render.NewRand(cfg.Seed))
	m.SetMasterVolume(cfg.MasterVolume)

	switch mode {
	case "list":
		listEvents(cat)
	case "play":
		playEvent(m, event, false)
	case "play_loop":
		playEvent(m, event, true)
	case "spam":
		spamEvent(m, event, 20)
	case "pan":
		sweepPan(m, event, 10)
	case "duck":
		duckDemo(m, cat, event, eventB)
	case "overflow":
		overflowDemo(m, event, 10)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func argOr(i int, def string) string {
	if flag.NArg() > i {
		return flag.Arg(i)
	}
	return def
}

func loadLibrary(cfg config.Config) (*recipe.Library, error) {
	if cfg.RecipePath != "" {
		return recipe.Load(cfg.RecipePath)
	}
	return recipe.LoadDefault()
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath != "" {
		return catalog.Load(cfg.CatalogPath)
	}
	return catalog.LoadDefault()
}

func listEvents(cat *catalog.Catalog) {
	for _, spec := range cat.Events() {
		fmt.Printf("%-24s bus=%-6s priority=%d loop=%v recipes=%v\n",
			spec.Name, spec.Bus, spec.Priority, spec.Loop, spec.RecipeIDs)
	}
}

func playEvent(m *mixer.Mixer, event string, loop bool) {
	center := mixer.Point{X: screen.X / 2, Y: screen.Y / 2}
	if loop {
		m.PlayLoopAt(event, center, screen)
	} else {
		m.PlayAt(event, center, screen)
	}
	runFor(m, 2*time.Second)
	if loop {
		m.StopLoop(event)
		runFor(m, 200*time.Millisecond)
	}
}

func spamEvent(m *mixer.Mixer, event string, count int) {
	granted := 0
	for i := 0; i < count; i++ {
		if m.Play(event) {
			granted++
		}
		step(m, 50*time.Millisecond)
	}
	fmt.Printf("granted %d of %d triggers\n", granted, count)
	runFor(m, time.Second)
}

func sweepPan(m *mixer.Mixer, event string, steps int) {
	for i := 0; i <= steps; i++ {
		x := screen.X / float64(steps) * float64(i)
		m.PlayAt(event, mixer.Point{X: x, Y: screen.Y / 2}, screen)
		fmt.Printf("x=%6.1f\n", x)
		step(m, 150*time.Millisecond)
	}
	runFor(m, time.Second)
}

func duckDemo(m *mixer.Mixer, cat *catalog.Catalog, loopEvent, transient string) {
	spec, err := cat.Get(loopEvent)
	if err != nil || !spec.Loop {
		loopEvent = "shield_loop"
	}
	m.PlayLoop(loopEvent)
	runFor(m, 500*time.Millisecond)
	m.Duck("loops", -6.0, 250)
	m.Play(transient)
	runFor(m, time.Second)
	m.StopLoop(loopEvent)
	runFor(m, 200*time.Millisecond)
}

func overflowDemo(m *mixer.Mixer, event string, plays int) {
	for i := 0; i < plays; i++ {
		ok := m.Play(event)
		fmt.Printf("trigger %d granted=%v\n", i+1, ok)
		step(m, 10*time.Millisecond)
	}
	snap := m.DebugSnapshot()
	for name, b := range snap.Buses {
		if b.Voices > 0 {
			fmt.Printf("bus %-6s voices=%d virtual=%d\n", name, b.Voices, b.Virtual)
		}
	}
	runFor(m, time.Second)
}

// step advances the mixer by d and sleeps the same amount so audible
// output lines up with engine time.
func step(m *mixer.Mixer, d time.Duration) {
	m.Update(d.Seconds())
	time.Sleep(d)
}

func runFor(m *mixer.Mixer, d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		step(m, frame)
	}
}
