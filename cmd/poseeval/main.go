/*
Command poseeval scores generated images against reference pose images using
Object Keypoint Similarity.  Images in the reference directory are paired by
base name with images in the generated directory, keypoints are extracted from
both with a YOLOv8-pose ONNX model, and the per pair and average OKS printed.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/swdee/go-posescore"
	"github.com/swdee/go-posescore/evaluate"
	"github.com/swdee/go-posescore/onnx"
	"github.com/swdee/go-posescore/render"
	"github.com/swdee/go-posescore/report"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	refDir := flag.String("g", "poses", "Directory of reference (ground truth) pose images")
	candDir := flag.String("c", "generated_images", "Directory of generated images, paired to references by file name")
	modelFile := flag.String("m", "yolov8n-pose.onnx", "YOLOv8-pose ONNX model file")
	ortLib := flag.String("l", "", "Path to the onnxruntime shared library, defaults to the platform library name")
	preset := flag.String("s", posescore.DefaultSigmaPreset, "Sigma preset, one of: "+strings.Join(posescore.SigmaPresetNames(), ", "))
	sigmaFile := flag.String("f", "", "File of per keypoint sigmas, one per line, overrides -s")
	workers := flag.Int("w", 1, "Number of image pairs to evaluate concurrently, each worker loads its own model session")
	resolution := flag.Int("r", onnx.DefaultParams().Resolution, "Length the short image side is resized to before detection, 0 to disable")
	overlayDir := flag.String("o", "", "Directory to save reference/generated skeleton overlays to")
	fontFile := flag.String("font", "", "TTF font file for overlay labels, defaults to a built in fixed width font")
	fontSize := flag.Float64("font-size", 16, "Point size of the -font overlay label font")
	jsonFile := flag.String("j", "", "File to write the JSON report to")
	dbFile := flag.String("d", "", "SQLite database to record the evaluation run in")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	level := slog.LevelInfo

	if *verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// load sigmas
	sigmas, err := loadSigmas(*preset, *sigmaFile)

	if err != nil {
		log.Fatalf("Error loading sigmas: %v\n", err)
	}

	for _, dir := range []string{*refDir, *candDir} {
		if err := checkDir(dir); err != nil {
			log.Fatal(err)
		}
	}

	if *overlayDir != "" {
		if err := os.MkdirAll(*overlayDir, 0o755); err != nil {
			log.Fatalf("Error creating overlay directory: %v\n", err)
		}
	}

	// create pool of pose extractors
	params := onnx.DefaultParams()
	params.Resolution = *resolution

	pool, err := onnx.NewPool(*workers, *modelFile, params,
		onnx.WithSharedLibrary(*ortLib), onnx.WithLogger(logger))

	if err != nil {
		log.Fatalf("Error creating pose extractor pool: %v\n", err)
	}

	defer pool.Close()

	opts := []evaluate.Option{
		evaluate.WithWorkers(*workers),
		evaluate.WithKeypoints(params.Pose.KeyPointsNumber),
		evaluate.WithLogger(logger),
	}

	if *overlayDir != "" {
		labeler, err := newLabeler(*fontFile, *fontSize)

		if err != nil {
			pool.Close()
			log.Fatalf("Error loading label font: %v\n", err)
		}

		opts = append(opts, evaluate.WithObserver(
			overlayObserver(*overlayDir, *candDir, labeler, logger)))
	}

	evaluator, err := evaluate.New(pool, sigmas, opts...)

	if err != nil {
		pool.Close()
		log.Fatalf("Error creating evaluator: %v\n", err)
	}

	logger.Debug("sigma table", "name", evaluator.Sigmas().Name(),
		"values", evaluator.Sigmas().Values())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()

	summary, err := evaluator.RunDirs(ctx, *refDir, *candDir)

	if err != nil {
		pool.Close()
		log.Fatalf("Evaluation failed: %v\n", err)
	}

	logger.Info("evaluation complete", "duration", time.Since(start).String(),
		"scored", summary.Scored, "skipped", summary.Skipped)

	if err := report.WriteText(os.Stdout, summary); err != nil {
		log.Fatalf("Error writing report: %v\n", err)
	}

	if *jsonFile != "" {
		if err := writeJSON(*jsonFile, summary); err != nil {
			log.Fatalf("Error writing JSON report: %v\n", err)
		}
	}

	if *dbFile != "" {
		meta := report.RunMeta{
			ReferenceDir: *refDir,
			CandidateDir: *candDir,
			Model:        *modelFile,
			SigmaPreset:  sigmas.Name(),
		}

		runID, err := saveRun(ctx, *dbFile, meta, summary)

		if err != nil {
			log.Fatalf("Error saving run: %v\n", err)
		}

		logger.Info("run saved", "db", *dbFile, "run_id", runID)
	}
}

// loadSigmas returns the sigma table from file if given, otherwise the
// named preset
func loadSigmas(preset, file string) (posescore.SigmaTable, error) {

	if file != "" {
		return posescore.LoadSigmas(file)
	}

	return posescore.SigmaPreset(preset)
}

// checkDir returns an error if dir is not an existing directory
func checkDir(dir string) error {

	info, err := os.Stat(dir)

	if err != nil {
		return fmt.Errorf("No such image directory %s, error: %v", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("Image path %s is not a directory", dir)
	}

	return nil
}

// overlayObserver returns an Observer that saves the reference and generated
// skeletons drawn over the generated image
func overlayObserver(outDir, candDir string, labeler *render.Labeler,
	logger *slog.Logger) evaluate.Observer {

	return func(res evaluate.PairResult, reference, candidate posescore.KeypointSet) {

		text := fmt.Sprintf("OKS = %.4f", res.OKS)

		if !res.Scored() {
			text = "skipped: " + res.Skip.String()
		}

		stem := strings.TrimSuffix(res.Reference, filepath.Ext(res.Reference))
		outFile := filepath.Join(outDir, stem+"_overlay.png")

		err := render.SaveComparison(outFile, filepath.Join(candDir, res.Candidate),
			reference, candidate, text, labeler)

		if err != nil {
			logger.Warn("overlay not saved", "reference", res.Reference, "error", err)
		}
	}
}

// newLabeler returns a labeler for the TTF font file, or the built in font
// when no file is given
func newLabeler(fontFile string, size float64) (*render.Labeler, error) {

	if fontFile == "" {
		return render.NewLabeler(), nil
	}

	return render.NewTTFLabeler(fontFile, size)
}

func writeJSON(file string, summary evaluate.Summary) error {

	f, err := os.Create(file)

	if err != nil {
		return err
	}

	if err := report.WriteJSON(f, summary); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func saveRun(ctx context.Context, dbFile string, meta report.RunMeta,
	summary evaluate.Summary) (string, error) {

	store, err := report.Open(dbFile)

	if err != nil {
		return "", err
	}

	defer store.Close()

	return store.SaveRun(ctx, meta, summary)
}
