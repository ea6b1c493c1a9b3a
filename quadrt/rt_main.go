package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"runtime"

	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/app"
	"github.com/pkg/errors"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	cfg := fieldquad.DefaultConfig()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := fieldquad.NewDefaultLogger("fieldquad", cfg.Debug)
	boundary := fieldquad.Boundary{Logger: logger, Exit: os.Exit}

	if *configPath != "" {
		fileCfg, err := fieldquad.LoadConfig(*configPath)
		if err != nil {
			boundary.Fail(err)
			return
		}
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		fileCfg.Override(cfg, set)
		cfg = fileCfg
		logger.SetDebug(cfg.Debug)
	}
	if err := cfg.Validate(); err != nil {
		boundary.Fail(err)
		return
	}

	if err := glfw.Init(); err != nil {
		boundary.Fail(fieldquad.Check("init glfw", err))
		return
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, cfg.WindowTitle, nil, nil)
	if err != nil {
		boundary.Fail(fieldquad.Check("create window", err))
		return
	}

	metrics := fieldquad.NewFrameMetrics()
	if cfg.MetricsAddr != "" {
		srv := fieldquad.NewMetricsServer(cfg.MetricsAddr, metrics)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warnf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
		logger.Infof("serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	application, err := app.NewWindowed(cfg, window, logger, metrics, os.Exit)
	if err != nil {
		boundary.Fail(err)
		return
	}
	if err := application.Run(context.Background()); err != nil {
		return
	}

	window.Destroy()
	glfw.Terminate()
	logger.Sync()
}
