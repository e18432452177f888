// Command ems-gateway wires configuration, logging, a bus transport, the
// telegram decoder, value sinks and the TCP command server together and
// runs until SIGINT/SIGTERM, following the shutdown pattern in
// ClusterCockpit-cc-backend/cmd/cc-backend/main.go.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/geowiwi/ems-gateway/internal/bus"
	"github.com/geowiwi/ems-gateway/internal/command"
	"github.com/geowiwi/ems-gateway/internal/config"
	"github.com/geowiwi/ems-gateway/internal/sink"
	"github.com/geowiwi/ems-gateway/internal/transport/serial"
	"github.com/geowiwi/ems-gateway/internal/transport/tcp"
	"github.com/geowiwi/ems-gateway/pkg/ems"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	entry := logrus.NewEntry(log)

	reg := prometheus.NewRegistry()
	metrics := ems.NewMetrics(reg)

	gw, closeGateway, err := buildGateway(cfg, entry)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise bus transport")
	}

	decoder := ems.NewDecoder(entry, metrics)
	sinkMetrics := sink.NewMetrics(reg)
	decoder.SetHandler(sink.Chain(sink.Logging(entry), sinkMetrics.Handle))

	router := command.NewRouter()
	dispatcher := bus.New(decoder, router, entry)
	gw.SetReceiver(dispatcher.Receive)

	ctx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	if err := openGateway(ctx, gw); err != nil {
		log.WithError(err).Fatal("failed to open bus transport")
	}
	defer closeGateway()

	server := command.NewServer(cfg.Command, gw, router, reg, entry)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("command server exited")
		}
	}()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server exited")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("shutting down")
	cancelAll()
	metricsSrv.Shutdown(context.Background())
	wg.Wait()
	log.Info("graceful shutdown completed")
}

func buildGateway(cfg config.Config, log *logrus.Entry) (ems.Gateway, func() error, error) {
	switch cfg.Transport {
	case "tcp":
		g := tcp.New(tcp.Config{Endpoint: cfg.BusEndpoint}, log)
		return g, g.Close, nil
	default:
		g := serial.New(serial.Config{Device: cfg.SerialDevice}, log)
		return g, g.Close, nil
	}
}

func openGateway(ctx context.Context, gw ems.Gateway) error {
	switch g := gw.(type) {
	case *serial.Gateway:
		return g.Open(ctx)
	case *tcp.Gateway:
		return g.Dial(ctx)
	default:
		return nil
	}
}
