// Command ambermount is a thin CLI front-end around manager.Manager
// for manually mounting packages and printing the Manager's loaded
// resource count and resident memory. It does not enumerate the
// resources a package contains.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/manager"
)

func main() {
	var (
		watch = pflag.BoolP("watch", "w", false, "hot-reload mounted packages on change")
		list  = pflag.BoolP("list", "l", true, "print loaded-resource count and total memory after mounting")
	)
	pflag.Parse()

	runID := uuid.New().String()[:8]
	corelog.Info("ambermount[%s]: starting", runID)

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ambermount [flags] <package.pkg>...")
		os.Exit(2)
	}

	mgr := manager.New(manager.Config{WatchForChanges: *watch})
	if err := mgr.Initialize("."); err != nil {
		corelog.Fatal("ambermount: %v", err)
	}
	defer mgr.Shutdown()

	for _, path := range pflag.Args() {
		if err := mgr.Mount(path); err != nil {
			corelog.Fatal("ambermount: mount %s: %v", path, err)
		}
	}

	if *list {
		fmt.Printf("loaded=%d total_memory=%d\n", mgr.LoadedCount(), mgr.TotalMemory())
	}

	if *watch {
		select {} // block forever, serving hot reload in the background
	}
}
