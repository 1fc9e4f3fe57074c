// Command posedecode decodes dumped OpenPose network outputs into poses.
//
// Usage:
//
//	posedecode -input frame-0.json
//	posedecode -input dumps/ -config posedecode.yml -output poses.jsonl
//	export-outputs | posedecode -input -
//
// Each frame is written as one JSON document holding the frame number and its
// poses in original-image pixels.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/nvr-ai/go-pose/config"
	"github.com/nvr-ai/go-pose/featuremap"
	"github.com/nvr-ai/go-pose/featuremap/tensors"
	"github.com/nvr-ai/go-pose/inference"
	"github.com/nvr-ai/go-pose/logger"
	"github.com/nvr-ai/go-pose/models/model"
	"github.com/nvr-ai/go-pose/profiler"
	"github.com/nvr-ai/go-pose/util"
)

// pipeName selects stdin or stdout instead of a file.
const pipeName = "-"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "posedecode:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) (err error) {
	fs := flag.NewFlagSet("posedecode", flag.ContinueOnError)
	var (
		configPath string
		input      string
		output     string
		modelName  string
		pretty     bool
	)
	fs.StringVar(&configPath, "config", "", "Path to a YAML config file (default: ./posedecode.yml if present)")
	fs.StringVar(&input, "input", "", "Frame dump file, directory of frame-N.json dumps, or - for stdin")
	fs.StringVar(&output, "output", pipeName, "Output file, or - for stdout")
	fs.StringVar(&modelName, "model", "", "Model name, overrides the config")
	fs.BoolVar(&pretty, "pretty", false, "Indent the JSON output (default when stdout is a terminal)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" {
		return errors.New("-input is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if modelName != "" {
		cfg.Model.Name = model.Name(modelName)
	}

	log, _, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	var prof *profiler.Profiler
	if cfg.Profiler.Enabled {
		prof = profiler.New(profiler.Options{ReportInterval: cfg.Profiler.ReportInterval, Logger: log.Named("profiler")})
		prof.Start()
		defer func() {
			prof.Stop()
			prof.Report()
		}()
	}

	estimator, err := inference.NewEstimatorBuilder().
		WithModel(cfg.Model).
		WithOptions(cfg.Estimator).
		WithDecoderConfig(cfg.Decoder).
		WithLogger(log).
		WithProfiler(prof).
		Build()
	if err != nil {
		return err
	}

	dumps, err := readDumps(input, stdin)
	if err != nil {
		return err
	}

	var dst io.Writer = stdout
	if output != pipeName {
		f, createErr := os.Create(output)
		if createErr != nil {
			return errors.Wrap(createErr, "create output")
		}
		buf := bufio.NewWriter(f)
		defer func() {
			flushErr := buf.Flush()
			closeErr := f.Close()
			if err != nil {
				return
			}
			if flushErr != nil {
				err = errors.Wrap(flushErr, "flush output")
			} else if closeErr != nil {
				err = errors.Wrap(closeErr, "close output")
			}
		}()
		dst = buf
	} else if isTerminal(stdout) {
		pretty = true
	}

	enc := json.NewEncoder(dst)
	if pretty {
		enc.SetIndent("", "  ")
	}

	log.Info("decoding frames",
		zap.String("model", string(cfg.Model.Name)),
		zap.Int("frames", len(dumps)),
	)
	for _, dump := range dumps {
		frame, err := toFrame(dump, estimator.Model())
		if err != nil {
			return errors.Wrapf(err, "frame %d", dump.Frame)
		}
		res, err := estimator.Predict(ctx, frame)
		if err != nil {
			return err
		}
		if err := enc.Encode(res); err != nil {
			return errors.Wrap(err, "write poses")
		}
		log.Info("frame decoded", zap.Int("frame", res.FrameID), zap.Int("poses", len(res.Poses)))
	}
	return nil
}

// readDumps loads a single dump file, a dump directory or a dump from stdin.
func readDumps(input string, stdin io.Reader) ([]util.FrameDump, error) {
	if input == pipeName {
		if isTerminal(stdin) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		var dump util.FrameDump
		if err := json.NewDecoder(stdin).Decode(&dump); err != nil {
			return nil, errors.Wrap(err, "decode stdin")
		}
		return []util.FrameDump{dump}, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}
	if !info.IsDir() {
		dump, err := util.LoadFrameFile(input)
		if err != nil {
			return nil, err
		}
		return []util.FrameDump{dump}, nil
	}

	files, err := util.LoadDirectoryFrames(input)
	if err != nil {
		return nil, err
	}
	dumps := make([]util.FrameDump, len(files))
	for i, f := range files {
		dumps[i] = f.Dump
	}
	return dumps, nil
}

// toFrame builds a decoder frame from a dump. Named outputs take precedence
// and are matched against the model's output names.
func toFrame(dump util.FrameDump, m model.Model) (inference.Frame, error) {
	heatDump, pafDump := dump.Heatmaps, dump.PAFs
	if len(dump.Outputs) > 0 {
		var err error
		heatDump, pafDump, err = inference.SelectOutputs(m, dump.Outputs)
		if err != nil {
			return inference.Frame{}, err
		}
	}

	heat, err := denseSet(heatDump)
	if err != nil {
		return inference.Frame{}, errors.Wrap(err, "heatmaps")
	}
	paf, err := denseSet(pafDump)
	if err != nil {
		return inference.Frame{}, errors.Wrap(err, "pafs")
	}
	return inference.Frame{ID: dump.Frame, Heatmaps: heat, PAFs: paf, Scale: dump.Scale}, nil
}

func denseSet(d util.TensorDump) (featuremap.Set, error) {
	dense, err := d.Dense()
	if err != nil {
		return featuremap.Set{}, err
	}
	return tensors.FromDense(dense)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
