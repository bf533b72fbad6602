package externalops

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/fyrsmithlabs/criticality/internal/phase"
)

// phasePrompts names the synthesis task each phase's model call performs,
// and the artifact it is expected to hand back on success.
var phasePrompts = map[phase.Phase]struct {
	prompt   string
	artifact phase.ArtifactType
}{
	phase.Ignition:         {"Author the specification for the synthesis target.", phase.ArtifactSpec},
	phase.Lattice:          {"Derive the lattice code, witnesses, and contracts from the spec.", phase.ArtifactLatticeCode},
	phase.CompositionAudit: {"Audit the composed lattice for contradictions and emit a validated structure.", phase.ArtifactValidatedStructure},
	phase.Injection:        {"Implement the validated structure.", phase.ArtifactImplementedCode},
	phase.Mesoscopic:       {"Verify the implemented code against its contracts.", phase.ArtifactVerifiedCode},
	phase.MassDefect:       {"Produce the final artifact from the verified code.", phase.ArtifactFinalArtifact},
}

// ModelCaller drives a langchaingo-backed model for the phases that require
// generative work. It is the kernel's only collaborator for actual
// synthesis; the kernel itself never reasons about the artifact contents.
type ModelCaller struct {
	Model llms.Model
}

// NewModelCaller builds a ModelCaller over an already-configured
// langchaingo model (e.g. an OpenAI- or Anthropic-backed llms.Model).
func NewModelCaller(model llms.Model) *ModelCaller {
	return &ModelCaller{Model: model}
}

// ExecuteModelCall issues the model call appropriate to p and reports the
// artifact it produced. An unrecognized phase is a collaborator-contract
// violation, not a protocol error, so it is reported as non-recoverable.
func (m *ModelCaller) ExecuteModelCall(ctx context.Context, p phase.Phase) (ActionResult, error) {
	spec, ok := phasePrompts[p]
	if !ok {
		return ActionResult{Success: false, Error: fmt.Sprintf("no model call defined for phase %s", p), Recoverable: false}, nil
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, m.Model, spec.prompt)
	if err != nil {
		return ActionResult{Success: false, Error: err.Error(), Recoverable: true}, nil
	}
	if text == "" {
		return ActionResult{Success: false, Error: "model returned an empty response", Recoverable: true}, nil
	}

	return ActionResult{Success: true, Artifacts: []phase.ArtifactType{spec.artifact}}, nil
}
