// Command kerneld is a minimal process entrypoint wiring a kernel.Core
// to a transport stub. It exists to demonstrate the wiring a real
// embedder performs, not as a deployable host process.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	kernel "github.com/nativebridge/kernel"
	"github.com/nativebridge/kernel/kernellog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core := kernel.New()
	core.Run()

	expire := time.NewTicker(kernel.DefaultExpireInterval)
	defer expire.Stop()
	go func() {
		for {
			select {
			case <-expire.C:
				core.ExpirePosts()
			case <-ctx.Done():
				return
			}
		}
	}()

	kernellog.Get().Info("kerneld: listening for ipc:// requests on stdin, one per line")

	go readStdin(ctx, core)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := core.Stop(stopCtx); err != nil {
		kernellog.Get().Error("kerneld: shutdown error", kernellog.F("error", err))
	}
}

func readStdin(ctx context.Context, core *kernel.Core) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		out := core.HandleIPC(ctx, line)
		fmt.Println(string(out))
	}
}
