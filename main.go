package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/onepanelio/podlogs/hub"
	"github.com/onepanelio/podlogs/kube"
	"github.com/onepanelio/podlogs/manager"
	"github.com/onepanelio/podlogs/metrics"
	"github.com/onepanelio/podlogs/server"
	"github.com/onepanelio/podlogs/stream"
	_ "github.com/onepanelio/podlogs/util/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	httpPort     = flag.String("http-port", ":5000", "Address the HTTP server listens on")
	templatesDir = flag.String("templates", "templates", "Directory holding the viewer UI")
	configDir    = flag.String("config", "config", "Directory holding the optional config file")
)

const shutdownTimeout = 10 * time.Second

func initConfig() {
	viper.SetDefault("TEST_MODE", false)
	viper.SetDefault("KUBECONFIG", "")
	viper.SetDefault("SYNTHETIC_LOG_INTERVAL", stream.DefaultSyntheticInterval)

	viper.SetConfigName("config")
	viper.AddConfigPath(*configDir)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithFields(log.Fields{
				"Error": err.Error(),
			}).Fatal("Read config failed.")
		}
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Printf("Config file changed: %v", e.Name)
	})
}

// newSource picks the log source and cluster view. TEST_MODE swaps the
// cluster for fixed pods and synthetic logs.
func newSource() (stream.Source, kube.Cluster) {
	if viper.GetBool("TEST_MODE") {
		log.Print("TEST_MODE is on, streaming synthetic logs")
		return stream.NewSyntheticSource(viper.GetDuration("SYNTHETIC_LOG_INTERVAL")), kube.NewMockClient()
	}

	client, err := kube.NewClient(viper.GetString("KUBECONFIG"))
	if err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Fatal("Connect to cluster failed.")
	}

	return stream.NewLiveSource(client), client
}

func main() {
	flag.Parse()
	initConfig()

	source, cluster := newSource()

	m := metrics.New()
	mgr := manager.New(source, hub.New(), m)

	srv, err := server.NewServer(cluster, mgr, m, *templatesDir)
	if err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Fatal("Create server failed.")
	}

	go func() {
		if err := srv.ListenAndServe(*httpPort); err != nil && err != http.ErrServerClosed {
			log.WithFields(log.Fields{
				"Error": err.Error(),
			}).Fatal("HTTP server failed.")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Print("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Error("HTTP shutdown failed.")
	}
	if err := mgr.Shutdown(ctx); err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Error("Session shutdown failed.")
	}
}
