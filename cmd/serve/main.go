package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pg9182/vpk/cmd/root"
	"github.com/pg9182/vpk/internal/server"
	"github.com/spf13/cobra"
)

var Flags struct {
	VPK  []string
	Addr string
}

var Command = &cobra.Command{
	Use:   "serve vpk_path...",
	Short: "Serves the contents of a VPK over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		main(cmd.Context())
	},
}

func init() {
	root.ArgVPK(&Flags.VPK, Command, -1)
	Command.Flags().StringVar(&Flags.Addr, "addr", "localhost:8080", "the address to listen on")
	root.Command.AddCommand(Command)
}

func main(ctx context.Context) {
	r, err := root.Load(ctx, Flags.VPK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open vpk: %v\n", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Handler:      server.New(r).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", Flags.Addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: listen: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "serving %d files on http://%s\n", len(r.ListFiles()), ln.Addr())
	if err := serve(ctx, srv, ln, os.Stderr, 5*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "error: serve: %v\n", err)
		os.Exit(1)
	}
}

// serve runs srv on ln until ctx is cancelled, then shuts it down, waiting up
// to grace for in-flight requests.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, stderr io.Writer, grace time.Duration) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			fmt.Fprintf(stderr, "warning: shutdown: %v\n", err)
		}
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
