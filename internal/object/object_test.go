// SPDX-License-Identifier: MIT

package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementsExts_ComponentCombinations(t *testing.T) {
	assert.Len(t, CoulombIntegrals.ElementsExts, 16)
	assert.Contains(t, CoulombIntegrals.ElementsExts, ".components.hhhh.elements")
	assert.Contains(t, CoulombIntegrals.ElementsExts, ".components.pppp.elements")

	assert.Equal(t, []string{".components.h.elements", ".components.p.elements"},
		SlicedEigenEnergies.ElementsExts)

	assert.Len(t, SlicedCoulombVertex.ElementsExts, 4)
	assert.Empty(t, ResultDict.ElementsExts)
}

func TestElementsFiles(t *testing.T) {
	files := Amplitudes.ElementsFiles("out/Amplitudes")
	assert.Equal(t, []string{
		"out/Amplitudes.components.ph.elements",
		"out/Amplitudes.components.pphh.elements",
	}, files)
}

func TestSidecarFiles_LiveNextToDescriptor(t *testing.T) {
	files := CoulombVertex.SidecarFiles("dump/CoulombVertex")
	assert.Equal(t, []string{"dump/State.yaml", "dump/AuxiliaryField.yaml"}, files)

	assert.Empty(t, Amplitudes.SidecarFiles("out/Amplitudes"))
}

func TestClassByName_Aliases(t *testing.T) {
	c, ok := ClassByName("DeltaIntegralsHH")
	require.True(t, ok)
	assert.Same(t, DeltaIntegrals, c)

	c, ok = ClassByName("DeltaIntegralsPPHH")
	require.True(t, ok)
	assert.Same(t, DeltaIntegrals, c)

	_, ok = ClassByName("NoSuchObject")
	assert.False(t, ok)
}

func TestClassFromPath(t *testing.T) {
	tests := []struct {
		path string
		want *Class
	}{
		{"CoulombVertex.yaml", CoulombVertex},
		{"dump/EigenEnergies.yaml", EigenEnergies},
		{"EigenEnergies.elements", EigenEnergies},
		{"EigenEnergies", EigenEnergies},
	}
	for _, tt := range tests {
		got, ok := ClassFromPath(tt.path)
		require.True(t, ok, tt.path)
		assert.Same(t, tt.want, got, tt.path)
	}

	_, ok := ClassFromPath("mystery.yaml")
	assert.False(t, ok)
}

func TestResolve(t *testing.T) {
	t.Run("from path stem", func(t *testing.T) {
		obj, err := Resolve("dump/CoulombVertex.yaml", "CoulombVertex", "")
		require.NoError(t, err)
		assert.Same(t, CoulombVertex, obj.Class)
		assert.Equal(t, "CoulombVertex", obj.Name)
	})

	t.Run("explicit type wins", func(t *testing.T) {
		obj, err := Resolve("dump/data.yaml", "DeltaIntegrals", "DeltaIntegralsHH")
		require.NoError(t, err)
		assert.Same(t, DeltaIntegrals, obj.Class)
	})

	t.Run("mismatch keeps explicit type", func(t *testing.T) {
		obj, err := Resolve("dump/CoulombVertex.yaml", "x", "EigenEnergies")
		require.NoError(t, err)
		assert.Same(t, EigenEnergies, obj.Class)
	})

	t.Run("unknown everywhere errors", func(t *testing.T) {
		_, err := Resolve("dump/data.yaml", "x", "")
		assert.ErrorIs(t, err, ErrUnknownObject)
	})

	t.Run("unknown explicit type errors", func(t *testing.T) {
		_, err := Resolve("dump/CoulombVertex.yaml", "x", "Bogus")
		assert.ErrorIs(t, err, ErrUnknownObject)
	})
}
