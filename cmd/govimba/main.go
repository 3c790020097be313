package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cjeanneret/GoVimba/internal/acquisition"
	"github.com/cjeanneret/GoVimba/internal/app"
	"github.com/cjeanneret/GoVimba/internal/camera"
	"github.com/cjeanneret/GoVimba/internal/config"
	"github.com/cjeanneret/GoVimba/internal/debug"
	"github.com/cjeanneret/GoVimba/internal/feature"
	"github.com/cjeanneret/GoVimba/internal/hw/gpio"
	"github.com/cjeanneret/GoVimba/internal/hw/trigger"
	"github.com/cjeanneret/GoVimba/internal/sink"
	"github.com/cjeanneret/GoVimba/internal/vimba"
	"github.com/cjeanneret/GoVimba/internal/vimba/sim"
	"github.com/cjeanneret/GoVimba/internal/web"
)

// overrides holds CLI values replacing config entries. Zero values mean
// "use config".
type overrides struct {
	ColorProcessing string
	FrameLogging    string
	TickHz          float64
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	list := flag.Bool("list", false, "list detected cameras and exit")
	features := flag.Bool("features", false, "print the polled features of each camera and exit")
	color := flag.String("color", "", "override color processing (off, matrix)")
	frameLog := flag.String("frame_logging", "", "override frame logging (off, errors, warnings, show)")
	tickHz := flag.Float64("tick_hz", 0, "override host loop rate in Hz (1-1000)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	o := overrides{ColorProcessing: *color, FrameLogging: *frameLog, TickHz: *tickHz}
	if err := validateCLIOverrides(o); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	applyOverrides(cfg, o)

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	var broadcaster *web.StatusBroadcaster
	if webPort.port() > 0 {
		broadcaster = web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))
	}

	debug.Step(1, "Starting camera SDK")
	sys, err := newSystemFromConfig(cfg)
	if err != nil {
		log.Fatalf("init SDK failed: %v", err)
	}
	api := camera.NewAPI(sys, camera.WithPacketSizeTimeout(cfg.PacketSizeTimeout()))
	if err := api.Startup(); err != nil {
		log.Fatalf("SDK startup failed: %v", err)
	}
	defer func() {
		if err := api.Close(); err != nil {
			log.Printf("SDK shutdown failed: %v", err)
		}
	}()
	debug.Value("SDK version", api.Version())

	if *list {
		listCameras(os.Stdout, api)
		return
	}

	debug.Step(2, "Opening cameras")
	ctrls, err := openCameras(api, cfg)
	if err != nil {
		log.Fatalf("open cameras failed: %v", err)
	}
	defer closeCameras(ctrls)

	debug.Step(3, "Building feature pollers")
	pollers := make(map[string]*feature.Poller, len(ctrls))
	for _, c := range ctrls {
		pollers[c.ID()] = newPoller(c, cfg)
	}

	if *features {
		printFeatures(os.Stdout, ctrls, pollers)
		return
	}

	if err := run(ctx, cfg, ctrls, pollers, webPort.port(), broadcaster); err != nil {
		log.Fatalf("run failed: %v", err)
	}
}

// run wires the host loop, sinks, trigger and web server, starts every
// camera and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, ctrls []*camera.Controller,
	pollers map[string]*feature.Poller, port int, broadcaster *web.StatusBroadcaster) error {
	sources := make([]app.Source, len(ctrls))
	cams := make([]app.Camera, len(ctrls))
	for i, c := range ctrls {
		sources[i], cams[i] = c, c
	}

	opts := []app.LoopOption{}
	for _, c := range ctrls {
		opts = append(opts, app.WithPoller(pollers[c.ID()]))
	}

	if cfg.Sink.ZMQEndpoint != "" {
		debug.Step(4, "Binding ZeroMQ frame sink")
		z, err := sink.NewZMQ(cfg.Sink.ZMQEndpoint)
		if err != nil {
			return err
		}
		defer z.Close()
		opts = append(opts, app.WithSink(z))
	}

	if cfg.Trigger.Enabled {
		debug.Step(5, "Arming trigger")
		t, closeTrigger, err := newTrigger(cfg, ctrls)
		if err != nil {
			return err
		}
		defer closeTrigger()
		opts = append(opts, app.WithTrigger(t, cfg.TriggerPeriod()))
	}

	var hub *web.FrameHub
	if port > 0 {
		hub = web.NewFrameHub(cfg.StreamInterval())
		opts = append(opts, app.WithSink(hub))
	}

	loop := app.NewLoop(cfg.TickInterval(), sources, opts...)
	host := app.NewHost(loop, cams, pollers)

	debug.Section("Starting acquisition")
	if err := host.StartAll(); err != nil {
		debug.Error(err)
	}
	defer func() {
		if err := host.StopAll(); err != nil {
			debug.Error(err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	if port > 0 {
		srv, err := web.NewServer(fmt.Sprintf(":%d", port), host, broadcaster, hub, cfg.Web.JPEGQuality)
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(ctx) })
	}
	err := g.Wait()

	ticks, frames := loop.Ticks()
	debug.Summary("Session complete")
	debug.Value("Ticks", ticks)
	debug.Value("Frames", frames)
	for _, c := range ctrls {
		debug.PrintStruct("Stats "+c.ID(), c.Stats())
	}
	return err
}

// newSystemFromConfig selects the SDK implementation.
func newSystemFromConfig(cfg *config.Config) (vimba.System, error) {
	switch cfg.SDK.Driver {
	case "sim":
		specs := make([]sim.CameraSpec, len(cfg.Sim.Cameras))
		for i, c := range cfg.Sim.Cameras {
			specs[i] = sim.CameraSpec{
				ID:              c.ID,
				Name:            c.Name,
				Model:           c.Model,
				SensorWidth:     c.Width,
				SensorHeight:    c.Height,
				PixelFormat:     c.PixelFormat,
				FrameRate:       c.FrameRate,
				IncompleteEvery: c.IncompleteEvery,
			}
		}
		return sim.NewSystem(specs...), nil
	default:
		return nil, fmt.Errorf("unsupported sdk driver: %s", cfg.SDK.Driver)
	}
}

// cameraIDs returns the configured IDs, or every detected camera.
func cameraIDs(api *camera.API, cfg *config.Config) []string {
	if len(cfg.Cameras) > 0 {
		return cfg.Cameras
	}
	var ids []string
	for _, c := range api.CameraList() {
		id, err := c.ID()
		if err != nil {
			debug.Warn("skipping camera without id: %v", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// openCameras opens every selected camera. On failure the ones already
// opened are closed again.
func openCameras(api *camera.API, cfg *config.Config) ([]*camera.Controller, error) {
	ids := cameraIDs(api, cfg)
	if len(ids) == 0 {
		return nil, errors.New("no cameras found")
	}
	ctrls := make([]*camera.Controller, 0, len(ids))
	for _, id := range ids {
		c, err := api.Camera(id,
			camera.WithFrameBuffers(cfg.Acquisition.FrameBuffers),
			camera.WithColorProcessing(cfg.ColorProcessing()),
			camera.WithLogMode(cfg.FrameLogging()),
		)
		if err != nil {
			closeCameras(ctrls)
			return nil, err
		}
		ctrls = append(ctrls, c)
	}
	return ctrls, nil
}

func closeCameras(ctrls []*camera.Controller) {
	for _, c := range ctrls {
		if err := c.Close(); err != nil {
			log.Printf("closing camera %s failed: %v", c.ID(), err)
		}
	}
}

// newPoller builds containers for the configured feature names. Features
// the camera lacks, or of a type no container handles, are skipped.
func newPoller(c *camera.Controller, cfg *config.Config) *feature.Poller {
	p := feature.NewPoller()
	for _, name := range cfg.Features.Names {
		f, err := c.FeatureByName(name)
		if err != nil {
			debug.Warn("camera %s: %v", c.ID(), err)
			continue
		}
		fc, err := feature.New(f, feature.WithDefaultInterval(cfg.DefaultPollInterval()))
		if err != nil {
			debug.Warn("camera %s: feature %s not polled: %v", c.ID(), name, err)
			continue
		}
		p.Add(fc)
	}
	debug.Verbose("camera %s: polling %d features", c.ID(), p.Len())
	return p
}

// newTrigger arms every camera for the configured source and returns the
// trigger the host loop fires. The returned close func puts the armed
// cameras back into free running and releases the GPIO driver.
func newTrigger(cfg *config.Config, ctrls []*camera.Controller) (trigger.Trigger, func(), error) {
	var armed []*camera.Controller
	var closers []func()
	closeAll := func() {
		for _, c := range armed {
			if err := trigger.Disarm(c); err != nil {
				log.Printf("camera %s: disarming trigger failed: %v", c.ID(), err)
			}
		}
		for _, fn := range closers {
			fn()
		}
	}
	fail := func(err error) (trigger.Trigger, func(), error) {
		closeAll()
		return nil, func() {}, err
	}
	arm := func(source string) error {
		for _, c := range ctrls {
			if err := trigger.Arm(c, source); err != nil {
				return fmt.Errorf("camera %s: %w", c.ID(), err)
			}
			armed = append(armed, c)
		}
		return nil
	}

	switch cfg.Trigger.Source {
	case "software":
		if err := arm(trigger.SourceSoftware); err != nil {
			return fail(err)
		}
		var multi trigger.Multi
		for _, c := range ctrls {
			sw, err := trigger.NewSoftware(c)
			if err != nil {
				return fail(fmt.Errorf("camera %s: %w", c.ID(), err))
			}
			multi = append(multi, sw)
		}
		return multi, closeAll, nil

	case "line1":
		drv, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := drv.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		})
		if mock, ok := drv.(*gpio.MockDriver); ok {
			wireSimLine(mock, cfg.Trigger.Pin, ctrls)
		}
		if err := arm(trigger.SourceLine1); err != nil {
			return fail(err)
		}
		line, err := trigger.NewLine(drv, cfg.Trigger.Pin, cfg.TriggerPulse())
		if err != nil {
			return fail(err)
		}
		return line, closeAll, nil
	}
	return nil, func() {}, fmt.Errorf("unsupported trigger source: %s", cfg.Trigger.Source)
}

// wireSimLine connects the mock trigger pin to the Line1 input of every
// simulated camera, standing in for the physical wire.
func wireSimLine(drv *gpio.MockDriver, pin int, ctrls []*camera.Controller) {
	var cams []*sim.Camera
	for _, c := range ctrls {
		if sc, ok := c.Camera().(*sim.Camera); ok {
			cams = append(cams, sc)
		}
	}
	if len(cams) == 0 {
		return
	}
	drv.OnWrite = func(p int, level gpio.Level) {
		if p != pin {
			return
		}
		for _, sc := range cams {
			sc.SetLine(level == gpio.High)
		}
	}
}

func listCameras(w io.Writer, api *camera.API) {
	cams := api.CameraList()
	fmt.Fprintf(w, "%d camera(s) found\n", len(cams))
	for _, c := range cams {
		id, _ := c.ID()
		name, _ := c.Name()
		model, _ := c.Model()
		fmt.Fprintf(w, "/// Camera ID : %s\n/// Name      : %s\n/// Model     : %s\n\n", id, name, model)
	}
}

func printFeatures(w io.Writer, ctrls []*camera.Controller, pollers map[string]*feature.Poller) {
	for _, c := range ctrls {
		fmt.Fprintf(w, "%s (%s)\n", c.ID(), c.Model())
		for _, fc := range pollers[c.ID()].Containers() {
			info := feature.Describe(fc)
			fmt.Fprintf(w, "  %-26s %v %s", info.Name, info.Value, info.Unit)
			if info.Min != nil {
				fmt.Fprintf(w, " [%v, %v]", info.Min, info.Max)
			}
			if info.Entries != nil {
				fmt.Fprintf(w, " %v", info.Entries)
			}
			fmt.Fprintf(w, " every %s\n", info.Interval)
		}
	}
}

// validateCLIOverrides checks non-zero CLI overrides.
func validateCLIOverrides(o overrides) error {
	if o.TickHz != 0 {
		if math.IsNaN(o.TickHz) || math.IsInf(o.TickHz, 0) || o.TickHz < 1 || o.TickHz > 1000 {
			return fmt.Errorf("tick_hz must be between 1 and 1000, got %g", o.TickHz)
		}
	}
	if o.ColorProcessing != "" {
		if _, err := acquisition.ParseColorProcessing(o.ColorProcessing); err != nil {
			return fmt.Errorf("color: %w", err)
		}
	}
	if o.FrameLogging != "" {
		if _, err := acquisition.ParseLogMode(o.FrameLogging); err != nil {
			return fmt.Errorf("frame_logging: %w", err)
		}
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.ColorProcessing != "" {
		cfg.Acquisition.ColorProcessing = o.ColorProcessing
	}
	if o.FrameLogging != "" {
		cfg.Acquisition.FrameLogging = o.FrameLogging
	}
	if o.TickHz > 0 {
		cfg.Loop.TickHz = o.TickHz
		if cfg.Trigger.RateHz > o.TickHz {
			cfg.Trigger.RateHz = o.TickHz
		}
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
