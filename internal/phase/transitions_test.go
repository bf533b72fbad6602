package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_ForwardHappyPath(t *testing.T) {
	root := t.TempDir()
	state := ProtocolState(ActiveState{Phase: Ignition, Substate: "entered"})
	have := []ArtifactType{ArtifactSpec}

	res, err := Transition(state, Lattice, have, root)
	require.NoError(t, err)
	assert.Equal(t, Lattice, res.State.(ActiveState).Phase)

	have = append(have, ArtifactLatticeCode, ArtifactWitnesses, ArtifactContracts)
	res, err = Transition(res.State, CompositionAudit, have, root)
	require.NoError(t, err)
	assert.Equal(t, CompositionAudit, res.State.(ActiveState).Phase)

	have = append(have, ArtifactValidatedStructure)
	res, err = Transition(res.State, Injection, have, root)
	require.NoError(t, err)

	have = append(have, ArtifactImplementedCode)
	res, err = Transition(res.State, Mesoscopic, have, root)
	require.NoError(t, err)

	have = append(have, ArtifactVerifiedCode)
	res, err = Transition(res.State, MassDefect, have, root)
	require.NoError(t, err)

	have = append(have, ArtifactFinalArtifact)
	res, err = Transition(res.State, Complete, have, root)
	require.NoError(t, err)
	complete, ok := res.State.(CompleteState)
	require.True(t, ok)
	assert.Contains(t, complete.Artifacts, ArtifactFinalArtifact)
}

func TestTransition_SkippingPhasesRejected(t *testing.T) {
	root := t.TempDir()
	state := ActiveState{Phase: Ignition, Substate: "entered"}

	_, err := Transition(state, Injection, []ArtifactType{ArtifactSpec}, root)
	require.Error(t, err)

	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeInvalidTransition, tErr.Code)
	assert.Contains(t, tErr.Error(), "Cannot skip phases")
	assert.Contains(t, tErr.Error(), string(Ignition))
	assert.Contains(t, tErr.Error(), string(Injection))
}

func TestTransition_MissingArtifacts(t *testing.T) {
	root := t.TempDir()
	state := ActiveState{Phase: Lattice, Substate: "entered"}

	_, err := Transition(state, CompositionAudit, []ArtifactType{ArtifactLatticeCode}, root)
	require.Error(t, err)

	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeMissingArtifacts, tErr.Code)
	assert.ElementsMatch(t, []ArtifactType{ArtifactWitnesses, ArtifactContracts}, tErr.Missing)
}

func TestTransition_AlreadyComplete(t *testing.T) {
	root := t.TempDir()
	state := CompleteState{Artifacts: []ArtifactType{ArtifactFinalArtifact}}

	_, err := Transition(state, Ignition, nil, root)
	require.Error(t, err)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeAlreadyComplete, tErr.Code)
}

func TestTransition_BlockedAndFailedRefuse(t *testing.T) {
	root := t.TempDir()

	_, err := Transition(BlockingState{Phase: Lattice}, CompositionAudit, nil, root)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeBlockedState, tErr.Code)

	_, err = Transition(FailedState{Phase: Lattice}, CompositionAudit, nil, root)
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeFailedState, tErr.Code)
}

func TestTransition_FailureRollback(t *testing.T) {
	root := t.TempDir()
	state := ActiveState{Phase: CompositionAudit, Substate: "entered"}

	res, err := Transition(state, Ignition, []ArtifactType{ArtifactContradictionReport}, root)
	require.NoError(t, err)
	assert.Equal(t, Ignition, res.State.(ActiveState).Phase)

	_, err = Transition(state, Ignition, nil, root)
	require.Error(t, err)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeMissingArtifacts, tErr.Code)
}

func TestTransition_InvalidFailureTarget(t *testing.T) {
	root := t.TempDir()
	state := ActiveState{Phase: Lattice, Substate: "entered"}

	_, err := Transition(state, Ignition, nil, root)
	require.Error(t, err)
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, CodeInvalidTransition, tErr.Code)
	assert.Contains(t, tErr.Error(), "not a valid failure transition")
}
