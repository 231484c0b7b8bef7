// Package wan drives the cloned Wan2.2 repository: it knows the published
// model variants, builds generate.py invocations, and manages the weight
// directories on the mounted volume.
package wan

import (
	"fmt"
	"path/filepath"

	"wanworker/internal/domain"
)

// Size is a requested output resolution. generate.py takes it as "W*H".
type Size struct {
	Width  int
	Height int
}

// Arg renders the size the way generate.py expects it.
func (s Size) Arg() string { return fmt.Sprintf("%d*%d", s.Width, s.Height) }

// String renders the size for the response info field.
func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// Variant describes one published Wan2.2 checkpoint.
type Variant struct {
	Name        string
	WeightsDir  string
	HFRepo      string
	DefaultSize Size
	AltSize     Size
	SupportsT2V bool
	SupportsI2V bool
	FPS         int
	// T5CPU keeps the text encoder on CPU; only the 5B checkpoint wants it.
	T5CPU bool
}

// The catalog mirrors the official model zoo. Note the TI2V default height
// is 704, not 720.
var variants = []Variant{
	{
		Name:        "ti2v-5B",
		WeightsDir:  "Wan2.2-TI2V-5B",
		HFRepo:      "Wan-AI/Wan2.2-TI2V-5B",
		DefaultSize: Size{1280, 704},
		AltSize:     Size{704, 1280},
		SupportsT2V: true,
		SupportsI2V: true,
		FPS:         24,
		T5CPU:       true,
	},
	{
		Name:        "t2v-A14B",
		WeightsDir:  "Wan2.2-T2V-A14B",
		HFRepo:      "Wan-AI/Wan2.2-T2V-A14B",
		DefaultSize: Size{1280, 720},
		AltSize:     Size{854, 480},
		SupportsT2V: true,
		FPS:         16,
	},
	{
		Name:        "i2v-A14B",
		WeightsDir:  "Wan2.2-I2V-A14B",
		HFRepo:      "Wan-AI/Wan2.2-I2V-A14B",
		DefaultSize: Size{1280, 720},
		AltSize:     Size{854, 480},
		SupportsI2V: true,
		FPS:         16,
	},
}

// defaults routes each task to the checkpoint published for it.
var defaults = map[domain.Task]string{
	domain.TaskTextToVideo:      "t2v-A14B",
	domain.TaskImageToVideo:     "i2v-A14B",
	domain.TaskTextImageToVideo: "ti2v-5B",
}

// Variants returns the full catalog.
func Variants() []Variant {
	out := make([]Variant, len(variants))
	copy(out, variants)
	return out
}

// Lookup finds a variant by name.
func Lookup(name string) (Variant, error) {
	for _, v := range variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q", domain.ErrUnknownModel, name)
}

// Resolve picks the variant for a task, honoring an explicit model override,
// and verifies the variant supports the task.
func Resolve(task domain.Task, model string) (Variant, error) {
	if !task.Valid() {
		return Variant{}, fmt.Errorf("%w: %q", domain.ErrUnknownTask, task)
	}
	name := model
	if name == "" {
		name = defaults[task]
	}
	v, err := Lookup(name)
	if err != nil {
		return Variant{}, err
	}
	if err := v.Supports(task); err != nil {
		return Variant{}, err
	}
	return v, nil
}

// Supports verifies task/variant compatibility.
func (v Variant) Supports(task domain.Task) error {
	ok := false
	switch task {
	case domain.TaskTextToVideo:
		ok = v.SupportsT2V
	case domain.TaskImageToVideo:
		ok = v.SupportsI2V
	case domain.TaskTextImageToVideo:
		ok = v.SupportsT2V && v.SupportsI2V
	}
	if !ok {
		return fmt.Errorf("%w: %s does not support %s", domain.ErrTaskNotSupported, v.Name, task)
	}
	return nil
}

// WeightsPath returns the checkpoint directory under the volume root.
func (v Variant) WeightsPath(volumePath string) string {
	return filepath.Join(volumePath, v.WeightsDir)
}
