package main

import (
	"context"
	"log"
	"sync"
	"time"

	"levelsense/internal/ble"
	"levelsense/internal/buzzer"
	"levelsense/internal/calibration"
	"levelsense/internal/config"
	"levelsense/internal/feedback"
	"levelsense/internal/haptic"
	"levelsense/internal/level"
	"levelsense/internal/mqtt"
	"levelsense/internal/sensor"
	"levelsense/internal/sensor/icm20948"
	"levelsense/internal/sensor/mpu9250"
	"levelsense/internal/sensor/nmeatilt"
	"levelsense/internal/web"
)

type options struct {
	demo        bool
	recordPath  string
	printAngles bool
}

// probeIMU is swapped in tests.
var probeIMU = func(src *icm20948.Source) error { return src.Probe() }

// runtime owns everything behind the CLI: the sampling pipeline, the
// web server and the optional transports. The sidecar goroutines start
// only after every fallible construction step has passed, so error
// paths never have to unwind them.
type runtime struct {
	cfg      config.Config
	status   *web.Status
	svc      *level.Service
	recorder *sensor.Recorder
	pub      mqtt.Publisher

	wg sync.WaitGroup
}

func newRuntime(ctx context.Context, cancel context.CancelFunc, cfg config.Config, opts options, logbuf *web.LogBuffer) (*runtime, error) {
	rt := &runtime{cfg: cfg, status: web.NewStatus()}

	store := calibration.Open(cfg.Calibration.Path)

	src := selectSource(cfg.Sensor, opts.demo)
	if opts.recordPath != "" {
		rec, err := sensor.CreateRecorder(opts.recordPath)
		if err != nil {
			return nil, err
		}
		rt.recorder = rec
		src = sensor.Tee(src, rec)
		log.Printf("recording samples to %s", opts.recordPath)
	}

	fb := feedback.New(feedback.Config{
		Player: buildPlayer(cfg.Feedback),
		Motor:  buildMotor(cfg.Feedback),
		Sound:  cfg.Feedback.Sound,
		Mode:   feedback.Mode(cfg.Feedback.Mode),
	})

	svc, err := level.New(level.Config{Source: src, Store: store, Feedback: fb})
	if err != nil {
		_ = fb.Close()
		rt.closeOutputs()
		return nil, err
	}
	rt.svc = svc
	if err := svc.Start(ctx); err != nil {
		_ = svc.Close()
		rt.closeOutputs()
		return nil, err
	}

	rt.status.SetStatic(src.Describe(), cfg.Web.Listen)

	// MQTT is best effort: an unreachable broker at startup is logged
	// and the daemon runs without it.
	if cfg.MQTT.Enable {
		clientID := mqttClientID(rt.status.Session())
		pub, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, clientID)
		if err != nil {
			log.Printf("mqtt: connect %s failed, continuing without: %v", cfg.MQTT.Broker, err)
		} else {
			rt.pub = pub
			feed := mqtt.NewFeed(pub)
			rt.wg.Add(1)
			go func() {
				defer rt.wg.Done()
				feed.Run(ctx, svc.Broadcast())
			}()
			log.Printf("mqtt: publishing to %s as %s", cfg.MQTT.Broker, clientID)
		}
	}

	// Same for BLE: no adapter means no advertisement, nothing else.
	if cfg.BLE.Enable {
		adv, err := ble.NewAdvertiser(cfg.BLE.Name)
		if err != nil {
			log.Printf("ble: init failed, continuing without: %v", err)
		} else {
			rt.wg.Add(1)
			go func() {
				defer rt.wg.Done()
				adv.Run(ctx, svc.Broadcast())
			}()
			log.Printf("ble: advertising as %s", cfg.BLE.Name)
		}
	}

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.status.Watch(ctx, svc.Broadcast())
	}()

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		err := web.Serve(ctx, cfg.Web.Listen, rt.status, svc, svc.Broadcast(), logbuf)
		if err != nil && ctx.Err() == nil {
			log.Printf("web server stopped: %v", err)
			cancel()
		}
	}()

	if opts.printAngles {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			printAngles(ctx, svc)
		}()
	}

	log.Printf("pipeline running source=%s calibration=%s listen=%s",
		src.Describe(), cfg.Calibration.Path, cfg.Web.Listen)
	return rt, nil
}

// Close waits out the sidecars (the context must already be cancelled),
// stops the pipeline and flushes the sample log.
func (rt *runtime) Close() {
	if rt == nil {
		return
	}
	rt.wg.Wait()
	if rt.svc != nil {
		if err := rt.svc.Close(); err != nil {
			log.Printf("pipeline close: %v", err)
		}
		rt.svc = nil
	}
	rt.closeOutputs()
}

func (rt *runtime) closeOutputs() {
	if rt.recorder != nil {
		if err := rt.recorder.Close(); err != nil {
			log.Printf("sample log close: %v", err)
		}
		rt.recorder = nil
	}
	if rt.pub != nil {
		_ = rt.pub.Close()
		rt.pub = nil
	}
}

// selectSource maps config to a sample producer. Auto probes the I2C
// IMU and falls back to the demo source, so the daemon starts on a
// bench with no hardware attached.
func selectSource(cfg config.SensorConfig, demo bool) sensor.Source {
	if demo {
		return &sensor.Demo{}
	}
	mount := mountFor(cfg.Mount)
	switch cfg.Source {
	case "demo":
		return &sensor.Demo{}
	case "imu":
		return &icm20948.Source{BusPath: cfg.I2CBus, Addr: cfg.I2CAddr, Mount: mount}
	case "spi":
		return &mpu9250.Source{Device: cfg.SPIPort, CSPin: cfg.SPICSPin, Mount: mount}
	case "nmea":
		return &nmeatilt.Source{Device: cfg.NMEADevice, Baud: cfg.NMEABaud}
	case "replay":
		return &sensor.Replay{Path: cfg.ReplayPath, Speed: cfg.ReplaySpeed, Loop: cfg.ReplayLoop}
	default: // auto
		imu := &icm20948.Source{BusPath: cfg.I2CBus, Addr: cfg.I2CAddr, Mount: mount}
		if err := probeIMU(imu); err != nil {
			log.Printf("sensor: imu probe failed (%v), using demo source", err)
			return &sensor.Demo{}
		}
		return imu
	}
}

func mountFor(name string) sensor.Mount {
	if name == "upright" {
		return sensor.MountUpright
	}
	return sensor.MountFlat
}

// buildPlayer constructs the audio output. Init failure degrades to
// silence rather than refusing to start; levelling still works over
// the web UI.
func buildPlayer(cfg config.FeedbackConfig) buzzer.Player {
	switch cfg.Buzzer {
	case "pwm":
		p, err := buzzer.NewPWM(cfg.PWM.Chip, cfg.PWM.Channel)
		if err != nil {
			log.Printf("feedback: pwm buzzer init failed, sound off: %v", err)
			return buzzer.Nop()
		}
		return p
	case "pcm":
		p, err := buzzer.OpenPCM(cfg.PCMDevice)
		if err != nil {
			log.Printf("feedback: pcm device %s init failed, sound off: %v", cfg.PCMDevice, err)
			return buzzer.Nop()
		}
		return p
	default:
		return buzzer.Nop()
	}
}

func buildMotor(cfg config.FeedbackConfig) haptic.Driver {
	if cfg.Haptic != "gpio" {
		return haptic.Nop()
	}
	m, err := haptic.OpenGPIO(cfg.GPIO.Chip, cfg.GPIO.Line)
	if err != nil {
		log.Printf("feedback: gpio haptic init failed, vibration off: %v", err)
		return haptic.Nop()
	}
	return m
}

func mqttClientID(session string) string {
	if len(session) > 8 {
		session = session[:8]
	}
	return "levelsense-" + session
}

func printAngles(ctx context.Context, svc *level.Service) {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap := svc.Snapshot()
			if !snap.Available {
				log.Printf("angles: waiting for samples")
				continue
			}
			log.Printf("angles: pitch=%+7.2f roll=%+7.2f orientation=%s color=%s level=%v",
				snap.PitchDeg, snap.RollDeg, snap.Orientation, snap.Color, snap.IsLevel)
		}
	}
}
