package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/mask-regions/internal/config"
	"github.com/ironsheep/mask-regions/internal/fault"
	"github.com/ironsheep/mask-regions/internal/regions"
)

// ExitMissingDependency is the helper exit status meaning one of its own
// runtime dependencies could not be imported.
const ExitMissingDependency = 3

// helperWaitDelay bounds how long a killed helper's output pipes are drained.
const helperWaitDelay = 500 * time.Millisecond

// SAM runs an external Segment Anything helper and reads its masks.
//
// The helper is invoked as
//
//	<runtime> [script] <image> --checkpoint <file> --model-type vit_h ...
//
// and must print {"masks": [...]} to stdout, each mask carrying an RLE
// "segmentation" and optional "bbox", "area", "stability_score" and
// "predicted_iou". Diagnostics go to stderr.
type SAM struct {
	cfg config.SAMConfig
	log *zap.Logger
}

// NewSAM creates a SAM source.
func NewSAM(cfg config.SAMConfig, log *zap.Logger) *SAM {
	if log == nil {
		log = zap.NewNop()
	}
	return &SAM{cfg: cfg, log: log}
}

func (s *SAM) Name() string {
	return config.SourceSAM
}

func (s *SAM) Fingerprint() string {
	g := s.cfg.Generator
	return fmt.Sprintf("sam:%s:pps=%d:iou=%g:stab=%g:crop=%d/%d:min=%d",
		g.ModelType, g.PointsPerSide, g.PredIOUThresh, g.StabilityScoreThresh,
		g.CropNLayers, g.CropNPointsDownscaleFactor, g.MinMaskRegionArea)
}

// Check verifies that the runtime executable and the helper script exist.
func (s *SAM) Check() error {
	if _, err := exec.LookPath(s.cfg.Runtime); err != nil {
		return &fault.Error{
			Kind: fault.MissingDependency,
			Op:   "locate segmentation runtime",
			Path: s.cfg.Runtime,
			Err:  err,
		}
	}
	if s.cfg.Script != "" {
		if _, err := os.Stat(s.cfg.Script); err != nil {
			return &fault.Error{
				Kind: fault.MissingDependency,
				Op:   "locate segmentation helper",
				Path: s.cfg.Script,
				Err:  err,
			}
		}
	}
	return nil
}

type samOutput struct {
	Masks []samMask `json:"masks"`
}

type samMask struct {
	Segmentation   *RLE      `json:"segmentation"`
	BBox           []float64 `json:"bbox"`
	Area           *float64  `json:"area"`
	StabilityScore *float64  `json:"stability_score"`
	PredictedIOU   *float64  `json:"predicted_iou"`
}

func (s *SAM) Generate(ctx context.Context, in Input) ([]regions.RawMask, error) {
	override := in.Checkpoint
	if override == "" {
		override = s.cfg.Checkpoint
	}
	checkpoint, err := ResolveCheckpoint(override, s.cfg.SearchPaths)
	if err != nil {
		return nil, err
	}
	s.log.Debug("using checkpoint", zap.String("path", checkpoint))

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, s.cfg.Runtime, s.args(in.Path, checkpoint)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = helperWaitDelay

	runErr := cmd.Run()
	s.logStderr(stderr.Bytes())

	if runErr != nil {
		return nil, s.classify(ctx, runErr, stderr.String())
	}

	var out samOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, &fault.Error{
			Kind: fault.SourceFailure,
			Op:   "parse helper output",
			Err:  err,
		}
	}

	masks := make([]regions.RawMask, 0, len(out.Masks))
	for i, m := range out.Masks {
		if m.Segmentation == nil {
			return nil, &fault.Error{
				Kind: fault.MaskExtractionFailure,
				Op:   fmt.Sprintf("decode mask %d", i),
				Err:  errors.New("missing segmentation"),
			}
		}
		grid, err := m.Segmentation.Decode()
		if err != nil {
			return nil, &fault.Error{
				Kind: fault.MaskExtractionFailure,
				Op:   fmt.Sprintf("decode mask %d", i),
				Err:  err,
			}
		}
		masks = append(masks, regions.RawMask{
			Segmentation:   grid,
			BBox:           m.BBox,
			Area:           m.Area,
			StabilityScore: m.StabilityScore,
			PredictedIOU:   m.PredictedIOU,
		})
	}

	s.log.Debug("helper finished", zap.Int("masks", len(masks)))
	return masks, nil
}

func (s *SAM) args(imagePath, checkpoint string) []string {
	g := s.cfg.Generator
	var args []string
	if s.cfg.Script != "" {
		args = append(args, s.cfg.Script)
	}
	return append(args,
		imagePath,
		"--checkpoint", checkpoint,
		"--model-type", g.ModelType,
		"--points-per-side", strconv.Itoa(g.PointsPerSide),
		"--pred-iou-thresh", strconv.FormatFloat(g.PredIOUThresh, 'g', -1, 64),
		"--stability-score-thresh", strconv.FormatFloat(g.StabilityScoreThresh, 'g', -1, 64),
		"--crop-n-layers", strconv.Itoa(g.CropNLayers),
		"--crop-n-points-downscale-factor", strconv.Itoa(g.CropNPointsDownscaleFactor),
		"--min-mask-region-area", strconv.Itoa(g.MinMaskRegionArea),
	)
}

// classify maps a failed helper run to a fault kind.
func (s *SAM) classify(ctx context.Context, runErr error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = runErr.Error()
	}

	if ctx.Err() != nil {
		return &fault.Error{
			Kind: fault.SourceFailure,
			Op:   "run segmentation helper",
			Err:  fmt.Errorf("%w: %s", ctx.Err(), detail),
		}
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() == ExitMissingDependency {
		return &fault.Error{
			Kind: fault.MissingDependency,
			Op:   "run segmentation helper",
			Err:  errors.New(detail),
		}
	}
	if errors.Is(runErr, exec.ErrNotFound) {
		return &fault.Error{
			Kind: fault.MissingDependency,
			Op:   "run segmentation helper",
			Path: s.cfg.Runtime,
			Err:  runErr,
		}
	}

	return &fault.Error{
		Kind: fault.SourceFailure,
		Op:   "run segmentation helper",
		Err:  errors.New(detail),
	}
}

func (s *SAM) logStderr(b []byte) {
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			s.log.Debug("helper", zap.String("stderr", line))
		}
	}
}
