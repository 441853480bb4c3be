package model_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

func TestIsExercise(t *testing.T) {
	require.True(t, model.IsExercise("EX_12", ""))
	require.True(t, model.IsExercise("SE_3", "Q&A"))
	require.True(t, model.IsExercise("SE_3", "Solved Example"))
	require.False(t, model.IsExercise("TH_1", ""))
	require.False(t, model.IsExercise("TH_1", "Definition"))
	require.False(t, model.IsExercise("", ""))
}

func TestResolveFamily(t *testing.T) {
	require.Equal(t, model.FamilySeaLLM, model.ModelProfile{Key: "SeaLLM-7B-khmer"}.ResolveFamily())
	require.Equal(t, model.FamilyQwen, model.ModelProfile{Key: "qwen2.5-khmer"}.ResolveFamily())
	// An explicit family always wins over the key heuristic.
	require.Equal(t, model.FamilyQwen, model.ModelProfile{Key: "seallm-x", Family: model.FamilyQwen}.ResolveFamily())
}

func TestUserQuery(t *testing.T) {
	require.Equal(t, "solve this", model.ChatRequest{Instruction: "solve this"}.UserQuery())
	require.Equal(t, "solve this x + 1 = 2", model.ChatRequest{Instruction: "solve this", InputText: "x + 1 = 2"}.UserQuery())
}
