// SPDX-License-Identifier: MIT

package algo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeStep(t *testing.T, src string) (Algo, error) {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	require.NotEmpty(t, node.Content)
	return Decode(node.Content[0])
}

func TestDecode_ReadStep(t *testing.T) {
	a, err := decodeStep(t, `
name: Read
in:
  fileName: "in/EigenEnergies.yaml"
out:
  destination: EigenEnergies
`)
	require.NoError(t, err)
	assert.Equal(t, NameRead, a.Name)

	in, ok := a.In.(*ReadIn)
	require.True(t, ok)
	assert.Equal(t, FName("in/EigenEnergies.yaml"), in.FileName)

	out, ok := a.Out.(*ReadOut)
	require.True(t, ok)
	assert.Equal(t, "EigenEnergies", out.Destination)
}

func TestDecode_UnknownAlgorithm(t *testing.T) {
	_, err := decodeStep(t, `
name: Nonsense
in: {}
out: {}
`)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestDecode_MissingRequiredField(t *testing.T) {
	_, err := decodeStep(t, `
name: Read
in: {}
out:
  destination: EigenEnergies
`)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "fileName")
}

func TestDecode_UnknownField(t *testing.T) {
	_, err := decodeStep(t, `
name: Read
in:
  fileName: "in/EigenEnergies.yaml"
  surprise: 42
out:
  destination: EigenEnergies
`)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestDecode_WriteOutputStaysRaw(t *testing.T) {
	a, err := decodeStep(t, `
name: Write
in:
  fileName: "Amplitudes.yaml"
  source: Amplitudes
out: {}
`)
	require.NoError(t, err)
	_, isRaw := a.Out.(*Raw)
	assert.True(t, isRaw)
}

func TestMarshal_KeyOrderAndQuoting(t *testing.T) {
	a := NewRead("in/CoulombVertex.yaml")

	data, err := yaml.Marshal(a)
	require.NoError(t, err)
	text := string(data)

	// name before in before out, and the file name double-quoted.
	nameIdx := strings.Index(text, "name: Read")
	inIdx := strings.Index(text, "in:")
	outIdx := strings.Index(text, "out:")
	require.GreaterOrEqual(t, nameIdx, 0)
	assert.Less(t, nameIdx, inIdx)
	assert.Less(t, inIdx, outIdx)
	assert.Contains(t, text, `fileName: "in/CoulombVertex.yaml"`)
	assert.Contains(t, text, "destination: CoulombVertex")
}

func TestMarshal_EmptyRawRendersEmptyMapping(t *testing.T) {
	a := NewWrite("Amplitudes.yaml", "Amplitudes")

	data, err := yaml.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), "out: {}")
}

func TestRoundTrip_CoupledCluster(t *testing.T) {
	orig := NewCoupledCluster(CoupledClusterOptions{MaxIterations: 50})

	data, err := yaml.Marshal(orig)
	require.NoError(t, err)

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &node))
	got, err := Decode(node.Content[0])
	require.NoError(t, err)

	in, ok := got.In.(*CoupledClusterIn)
	require.True(t, ok)
	assert.Equal(t, "Ccsd", in.Method)
	assert.Equal(t, 50, in.MaxIterations)
	assert.Equal(t, Mixer{Type: "DiisMixer", MaxResidua: 4, Ratio: 1.0}, in.Mixer)
}

func TestDecode_CoupledClusterRequiresSliceSize(t *testing.T) {
	_, err := decodeStep(t, `
name: CoupledCluster
in:
  method: Ccsd
  linearized: 0
  slicedEigenEnergies: SlicedEigenEnergies
  coulombIntegrals: CoulombIntegrals
  slicedCoulombVertex: SlicedCoulombVertex
  maxIterations: 30
  energyConvergence: "1E-7"
  amplitudesConvergence: "1E-6"
  mixer:
    type: DiisMixer
    maxResidua: 4
    ratio: 1.0
out:
  amplitudes: Amplitudes
`)
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "integralsSliceSize")
}

func TestNames_ContainsRegisteredAlgorithms(t *testing.T) {
	names := Names()
	assert.Contains(t, names, NameRead)
	assert.Contains(t, names, NameCoupledCluster)
	assert.IsNonDecreasing(t, names)
}
