// Command docrep-dump logs a structural summary of a docrep stream:
// for each document, one line per store (its size, whether it is lazy,
// and how many bytes it preserved as opaque lazy data), then one line
// for the document (its class and store counts, class names and
// document-level lazy bytes), without requiring the caller to declare
// a static schema up front.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kungfusheep/docrep"
)

var (
	maxGroupBytes  int64
	maxArrayLen    int
	maxSchemaBytes int
	verbose        bool
)

// emptyDocument is a StaticDocument that declares nothing, so every
// store and field, and every class other than __meta__ (which always
// binds to the document itself), reconciles as lazy. dump's job
// is to describe stream shape, not to materialize caller types.
type emptyDocument struct{}

func (emptyDocument) Stores() []docrep.StaticStore            { return nil }
func (emptyDocument) Schemas() []docrep.StaticAnnotationClass { return nil }
func (emptyDocument) Fields() []docrep.StaticField            { return nil }
func (emptyDocument) NewDocument() any                        { return &struct{}{} }

type summaryVisitor struct {
	log        zerolog.Logger
	classNames []string
}

func (v *summaryVisitor) VisitClass(c *docrep.RuntimeClass) error {
	v.classNames = append(v.classNames, c.StreamName)
	return nil
}

func (v *summaryVisitor) VisitField(c *docrep.RuntimeClass, f *docrep.RuntimeField) error {
	return nil
}

func (v *summaryVisitor) VisitStore(s *docrep.RuntimeStore) error {
	lazyBytes := 0
	if s.Materialized != nil && s.Materialized.Lazy != nil {
		lazyBytes = len(s.Materialized.Lazy.Bytes())
	}
	v.log.Info().
		Str("store", s.StreamName).
		Int("nelem", s.NElem).
		Bool("lazy", s.Lazy).
		Int("lazy_bytes", lazyBytes).
		Msg("store")
	return nil
}

func dump(log zerolog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("mmap %s: %w", path, err)
	}
	defer data.Unmap()

	limits := docrep.DefaultLimits
	if maxGroupBytes > 0 {
		limits.MaxGroupBytes = int(maxGroupBytes)
	}
	if maxArrayLen > 0 {
		limits.MaxArrayLen = maxArrayLen
	}
	if maxSchemaBytes > 0 {
		limits.MaxSchemaBytes = maxSchemaBytes
	}

	reader := docrep.NewReaderWithLimits(emptyDocument{}, limits)
	src := docrep.NewByteSource(data)

	for n := 0; ; n++ {
		doc, err := reader.ReadNext(src)
		if errors.Is(err, docrep.ErrEndOfStream) {
			log.Info().Int("documents", n).Msg("end of stream")
			return nil
		}
		if err != nil {
			return fmt.Errorf("document %d: %w", n, err)
		}

		v := &summaryVisitor{log: log}
		if err := docrep.Inspect(doc, v); err != nil {
			return fmt.Errorf("document %d: inspect: %w", n, err)
		}

		docLog := log.Info().
			Int("document", n).
			Int("classes", len(doc.Schema.Classes)).
			Int("stores", len(doc.Schema.Stores)).
			Strs("class_names", v.classNames)
		if doc.Lazy != nil {
			docLog = docLog.Int("doc_lazy_bytes", len(doc.Lazy.Bytes()))
		}
		docLog.Msg("document")
	}
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:   "docrep-dump <file>",
		Short: "Summarize a docrep stream's structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return dump(log, args[0])
		},
	}

	root.Flags().Int64Var(&maxGroupBytes, "max-group-bytes", 0, "override DecodeLimits.MaxGroupBytes (0 = default)")
	root.Flags().IntVar(&maxArrayLen, "max-array-len", 0, "override DecodeLimits.MaxArrayLen (0 = default)")
	root.Flags().IntVar(&maxSchemaBytes, "max-schema-bytes", 0, "override DecodeLimits.MaxSchemaBytes (0 = default)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("docrep-dump failed")
		os.Exit(1)
	}
}
