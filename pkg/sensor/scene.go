package sensor

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/golightmeter/pkg/sample"
)

// SceneConfig describes a simulated scene.
type SceneConfig struct {
	MinLux    float32 // lower bound of the base level
	MaxLux    float32 // upper bound of the base level
	Variation float32 // relative per-cell variation, 0.3 = +-30%
	Highlight float32 // multiplier of the highlight cell, 0 disables it
	Seed      int64   // 0 seeds from the clock
}

// Scene simulates a lit scene: a random base level falling off around a
// random hot spot, with per-cell variation. A new scene is drawn every time
// cell (1,1) is read after another cell, so each measurement cycle sees a
// fresh, internally consistent scene.
type Scene struct {
	cfg SceneConfig

	mu        sync.Mutex
	rnd       *rand.Rand
	lux       [sample.Rows][sample.Cols]float32
	raw       [sample.Rows][sample.Cols]sample.Raw
	hotRow    int
	hotCol    int
	generated bool
	lastRow   int
	lastCol   int
}

// NewScene creates a scene generator.
func NewScene(cfg SceneConfig) *Scene {
	seed := uint64(cfg.Seed)
	if cfg.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if cfg.MaxLux < cfg.MinLux {
		cfg.MaxLux = cfg.MinLux
	}
	return &Scene{
		cfg: cfg,
		rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next draws a new scene.
func (s *Scene) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next()
}

func (s *Scene) next() {
	base := s.cfg.MinLux + s.rnd.Float32()*(s.cfg.MaxLux-s.cfg.MinLux)
	s.hotRow = s.rnd.IntN(sample.Rows)
	s.hotCol = s.rnd.IntN(sample.Cols)

	for r := range sample.Rows {
		for c := range sample.Cols {
			var lux float32
			if s.cfg.Highlight > 0 && r == s.hotRow && c == s.hotCol {
				lux = base * s.cfg.Highlight
			} else {
				dr := float32(r - s.hotRow)
				dc := float32(c - s.hotCol)
				falloff := max(0.5, 1-math32.Sqrt(dr*dr+dc*dc)/8)
				jitter := 1 - s.cfg.Variation + 2*s.cfg.Variation*s.rnd.Float32()
				lux = base * falloff * jitter
			}
			s.lux[r][c] = lux
			s.raw[r][c] = sample.RawFromIlluminance(lux)
		}
	}
	s.generated = true
}

func (s *Scene) Read(row, col int) (sample.Raw, error) {
	if err := sample.CheckCoord(row, col); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.generated || (row == 1 && col == 1 && (s.lastRow != 1 || s.lastCol != 1)) {
		s.next()
	}
	s.lastRow, s.lastCol = row, col
	return s.raw[row-1][col-1], nil
}

// Lux returns the illuminance of the current scene.
func (s *Scene) Lux() [sample.Rows][sample.Cols]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lux
}

// hotSpot returns the 1-indexed coordinates of the current highlight.
func (s *Scene) hotSpot() (row, col int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hotRow + 1, s.hotCol + 1
}
