/*
Demo application: indexes an asset directory, loads the media manifest,
preloads everything it declares and serves the status page until interrupted.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/aria/engine/assets"
	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/media"
	"github.com/spaghettifunk/aria/web"
)

func main() {
	assetsDir := flag.String("assets", "assets", "root directory of the asset tree")
	manifestPath := flag.String("manifest", "assets/media.toml", "path to the media manifest")
	listenAddr := flag.String("listen", "127.0.0.1:8077", "status server address")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	core.LogSetVerbose(*verbose)

	store, err := assets.NewDirStore(*assetsDir)
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer store.Close()

	manager, err := media.NewManager(&media.ManagerConfig{Storage: store})
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer manager.Shutdown()

	data, err := os.ReadFile(*manifestPath)
	if err != nil {
		core.LogFatal("failed to read manifest: %s", err.Error())
	}
	manifest, err := media.ParseManifest(data)
	if err != nil {
		core.LogFatal(err.Error())
	}
	manager.LoadManifest(manifest)

	manager.ExecuteOnResourceLoad(func(r media.Resource) {
		core.LogInfo("loaded %s '%s'", r.Category(), r.Name())
	})

	manager.RequestAll()
	manager.ExecuteWhenReady(func() {
		m := manager.Metrics()
		core.LogInfo("all resources terminal: %d loaded, %d failed, %d files fetched (%d bytes)",
			m.ResourcesLoaded, m.ResourcesFailed, m.FilesFetched, m.BytesFetched)
	})

	go func() {
		if err := web.StartServer(*listenAddr, manager); err != nil {
			core.LogError("status server stopped: %s", err.Error())
		}
	}()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	<-sigCh
}
