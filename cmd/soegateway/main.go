package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironrelay/soecore/internal/channel"
	"github.com/ironrelay/soecore/internal/config"
	"github.com/ironrelay/soecore/internal/gateway"
	"github.com/ironrelay/soecore/internal/metrics"
	"github.com/ironrelay/soecore/pkg/logging"
)

const version = "0.1.0"

func main() {
	logging.Banner("SOE Gateway", version)

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logging.New(cfg.LogLevel)
	log.Info("listening on %s, %d max sessions, %d workers", cfg.ListenAddr, cfg.MaxSessions, cfg.Workers)

	collectors := metrics.NewCollectors("soegateway")
	collectors.MustRegister(prometheus.DefaultRegisterer)

	addr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		log.Fatal("resolve listen address: %v", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		log.Fatal("listen: %v", err)
	}
	defer conn.Close()

	chCfg := channel.Config{
		BufferSize:           cfg.DefaultBufferSize,
		RecencyLimit:         uint16(cfg.RecencyLimit),
		MillisUntilResend:    cfg.RetransmitIntervalMs,
		DefaultCrcSize:       cfg.DefaultCrcSize,
		CompressionThreshold: cfg.CompressionThreshold,
		IdleTimeoutMs:        cfg.IdleTimeoutMs,
		Metrics:              collectors,
	}
	mgr := gateway.New(cfg.MaxSessions, chCfg, log)
	mgr.SetMetrics(collectors)
	queue := gateway.NewWorkQueue(cfg.MaxSessions * 2)

	done := make(chan struct{})
	for i := 0; i < cfg.Workers; i++ {
		go workerLoop(mgr, queue, conn, done, log, collectors)
	}
	go sweepLoop(mgr, queue, done)

	go func() {
		log.Info("metrics listening on %s", cfg.MetricsAddr)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Warn("metrics server stopped: %v", err)
		}
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- readLoop(conn, mgr, queue, log, collectors)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errChan:
		log.Fatal("gateway error: %v", err)
	case sig := <-sigChan:
		log.Warn("received signal: %v", sig)
		log.Info("shutting down gracefully...")
		close(done)
		time.Sleep(200 * time.Millisecond)
		log.Success("gateway stopped")
		os.Exit(0)
	}
}

// readLoop owns the socket's read side: every inbound datagram is handed to
// the manager, creating a channel on first contact, and pushed onto the
// work queue whenever it transitions the channel from idle to having work.
func readLoop(conn *net.UDPConn, mgr *gateway.Manager, queue *gateway.WorkQueue, log *logging.Logger, collectors *metrics.Collectors) error {
	buf := make([]byte, 2048)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		collectors.BytesIn.Add(float64(n))
		collectors.PacketsIn.Inc()

		endpoint := channel.Endpoint(raddr.String())
		data := append([]byte(nil), buf[:n]...)

		result := mgr.Receive(endpoint, data)
		if result.CreateChannelFirst {
			if _, err := mgr.Insert(endpoint); err != nil {
				log.Warn("insert channel for %s: %v", endpoint, err)
				continue
			}
			result = mgr.Receive(endpoint, data)
		}
		if result.HasWork {
			queue.Push(endpoint)
		}
	}
}

// workerLoop pulls endpoints with pending work off the queue, runs one
// inbound and one outbound dispatch round, writes any resulting datagrams,
// and re-pushes the endpoint if it still has work left.
func workerLoop(mgr *gateway.Manager, queue *gateway.WorkQueue, conn *net.UDPConn, done chan struct{}, log *logging.Logger, collectors *metrics.Collectors) {
	for {
		addr, ok := queue.Pop(done)
		if !ok {
			return
		}
		c := mgr.GetByAddr(addr)
		if c == nil {
			continue
		}

		if _, err := mgr.ProcessNextAndAuthenticate(addr, c, 32); err != nil {
			log.Warn("process %s: %v", addr, err)
			collectors.DecodeErrors.WithLabelValues(metrics.DecodeErrorKind(err)).Inc()
		}
		datagrams, err := mgr.SendNext(c, 32, time.Now())
		if err != nil {
			log.Warn("send %s: %v", addr, err)
		}
		raddr, err := net.ResolveUDPAddr("udp", string(addr))
		if err == nil {
			for _, dg := range datagrams {
				if _, err := conn.WriteToUDP(dg, raddr); err != nil {
					log.Warn("write to %s: %v", addr, err)
					continue
				}
				collectors.BytesOut.Add(float64(len(dg)))
				collectors.PacketsOut.Inc()
			}
		}

		if mgr.StillHasWork(c) {
			queue.Push(addr)
		}
	}
}

// sweepLoop periodically disconnects idle channels and reaps closed ones,
// running independently of the per-datagram work queue.
func sweepLoop(mgr *gateway.Manager, queue *gateway.WorkQueue, done chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			mgr.SweepTimeouts(now, queue)
			mgr.SweepIdle()
		}
	}
}
