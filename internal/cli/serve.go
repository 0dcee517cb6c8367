package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipforge/internal/logging"
	"github.com/mgpai22/clipforge/internal/pipeline"
	"github.com/mgpai22/clipforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP job server",
	Long: `Serve the job API: upload a video, start processing with JSON options,
follow progress as server-sent events and download the result.

Endpoints:
  POST   /api/upload                 multipart form with a "file" field
  POST   /api/jobs/{id}/process      start processing (409 while running)
  GET    /api/jobs/{id}/progress     server-sent progress events
  GET    /api/jobs/{id}/status       job state
  GET    /api/jobs/{id}/result       processed video
  GET    /api/jobs/{id}/captions     caption file
  DELETE /api/jobs/{id}              cancel a running job, or delete a finished one`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", server.DefaultHost, "Host to bind to")
	serveCmd.Flags().IntP("port", "p", server.DefaultPort, "Port to listen on")
	serveCmd.Flags().String("work-dir", "", "Directory for uploads and job files (default: a temp dir)")
	serveCmd.Flags().Bool("json-logs", false, "Log as JSON")
}

func runServe(cmd *cobra.Command, args []string) error {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	workDir, _ := cmd.Flags().GetString("work-dir")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	if jsonLogs {
		logger = logging.NewJSONLogger(verbose)
	}

	engine, paths, err := newEngine()
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Deps{
		Engine:      engine,
		Transcriber: pipeline.DefaultTranscriber(engine, paths.FFmpeg, logger),
		Translator:  pipeline.DefaultTranslator(logger),
		Logger:      logger,
	})

	srv, err := server.New(server.Config{Host: host, Port: port, WorkDir: workDir}, p, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "clipforge server: http://%s:%d\n", host, port)
	return srv.Run(ctx)
}
