package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/clinia/bulkx/bulkinsert"
	"github.com/clinia/bulkx/configx"
	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/internal/config"
	"github.com/clinia/bulkx/internal/ndjson"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/otelx"
	"github.com/clinia/bulkx/pubsubx/autosetup"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

const (
	flagIDPath = "id-path"
	flagKeepID = "keep-id"
	flagSet    = "set"
	flagQuiet  = "quiet"
)

func newInsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert [./path/to/documents.ndjson]",
		Short: "Insert newline delimited JSON documents",
		Long: `Insert newline delimited JSON documents, one object per line, read from the file or from stdin.

The document id is read at --id-path and removed from the body unless --keep-id is set.
An "@metadata" object, when present, becomes the document metadata.

	{"id": "users/1", "name": "Ada", "@metadata": {"@collection": "Users"}}
`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInsert,
	}

	cmd.Flags().String(flagIDPath, "id", "Path of the document id in each line.")
	cmd.Flags().Bool(flagKeepID, false, "Keep the id field in the document body.")
	cmd.Flags().StringToString(flagSet, nil, "Fields set on every document, i.e. --set tenant=acme.")
	cmd.Flags().BoolP(flagQuiet, "q", false, "Do not print the progress reports.")

	return cmd
}

func runInsert(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := config.New(ctx, cmd.Flags(),
		configx.WithLogger(logrusx.New("bulkx", Version, logrusx.WithOutput(cmd.ErrOrStderr()))),
		configx.WithStandardValidationReporter(cmd.ErrOrStderr()),
	)
	if err != nil {
		return err
	}
	l := logrusx.New("bulkx", Version, append(c.LoggerOptions(), logrusx.WithOutput(cmd.ErrOrStderr()))...)

	telemetry, err := otelx.New(ctx, l, c.Telemetry("bulkx"), otelx.WithWriter(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer func() {
		if serr := telemetry.Shutdown(context.WithoutCancel(ctx)); serr != nil {
			l.WithError(serr).Warnf("failed to flush telemetry")
		}
	}()
	otel.SetTextMapPropagator(telemetry.Propagator)

	client, err := c.Client()
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return errorx.InvalidArgumentErrorf("cannot open %s: %v", args[0], err).WithCause(err)
		}
		defer f.Close()
		in = f
	}

	opts := []bulkinsert.SessionOption{
		bulkinsert.WithLogger(l),
		bulkinsert.WithTracerProvider(telemetry.TracerProvider),
		bulkinsert.WithMeterProvider(telemetry.MeterProvider),
	}
	if quiet, _ := cmd.Flags().GetBool(flagQuiet); !quiet {
		opts = append(opts, bulkinsert.WithReport(func(line string) {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), line)
		}))
	}
	if c.NotificationsEnabled() {
		source, err := autosetup.New(l, c.PubSub())
		if err != nil {
			return err
		}
		defer source.Close()
		opts = append(opts, bulkinsert.WithNotifications(source))
	}

	session, err := bulkinsert.Open(ctx, client, c.BulkInsertOptions(), opts...)
	if err != nil {
		return err
	}

	if err := insert(ctx, cmd, session, in); err != nil {
		// Closing with a done context abandons the stream instead of committing a partial input.
		abandon, cancel := context.WithCancel(ctx)
		cancel()
		_ = session.Close(abandon)
		return err
	}

	if err := session.Close(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d documents in operation %d\n", session.Written(), session.OperationID())
	return nil
}

func insert(ctx context.Context, cmd *cobra.Command, session *bulkinsert.Session, in io.Reader) error {
	idPath, _ := cmd.Flags().GetString(flagIDPath)
	var opts []ndjson.DecoderOption
	if keep, _ := cmd.Flags().GetBool(flagKeepID); keep {
		opts = append(opts, ndjson.KeepID())
	}
	if set, _ := cmd.Flags().GetStringToString(flagSet); len(set) > 0 {
		opts = append(opts, ndjson.WithFields(set))
	}

	dec := ndjson.NewDecoder(in, idPath, opts...)
	for {
		r, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := session.Write(ctx, r.ID, r.Metadata, r.Body); err != nil {
			return err
		}
	}
}
