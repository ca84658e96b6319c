package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omop2neo4j/pkg/errors"
)

func boundCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c := NewCoordinator()
	require.NoError(t, c.BindGroup("concept", GroupConcept))
	require.NoError(t, c.BindGroup("domain", GroupDomain))
	require.NoError(t, c.BindGroup("vocabulary", GroupVocabulary))
	return c
}

func TestCoordinator_BindGroup(t *testing.T) {
	c := boundCoordinator(t)

	// Rebinding the same pair is a no-op.
	assert.NoError(t, c.BindGroup("concept", GroupConcept))

	// A domain cannot move to another group.
	err := c.BindGroup("concept", GroupDomain)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))

	// A group cannot serve two domains.
	err = c.BindGroup("measurement", GroupConcept)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}

func TestCoordinator_RegisterNode(t *testing.T) {
	c := boundCoordinator(t)

	require.NoError(t, c.RegisterNode(GroupConcept, "1001"))
	assert.Equal(t, 1, c.NodeCount(GroupConcept))

	err := c.RegisterNode(GroupConcept, "1001")
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
	assert.Equal(t, 1, c.NodeCount(GroupConcept))

	// The same id value is fine in a different group.
	require.NoError(t, c.RegisterNode(GroupDomain, "1001"))
}

func TestCoordinator_RegisterNode_UnboundGroup(t *testing.T) {
	c := NewCoordinator()
	err := c.RegisterNode(GroupConcept, "1001")
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}

func TestCoordinator_CheckEdge(t *testing.T) {
	c := boundCoordinator(t)
	require.NoError(t, c.RegisterNode(GroupConcept, "1001"))
	require.NoError(t, c.RegisterNode(GroupConcept, "1002"))

	assert.NoError(t, c.CheckEdge("rels_semantic.csv", GroupConcept, "1001", GroupConcept, "1002"))

	err := c.CheckEdge("rels_semantic.csv", GroupConcept, "1001", GroupConcept, "9999")
	require.Error(t, err)
	var dangling *errors.DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "9999", dangling.ID)
	assert.Equal(t, "rels_semantic.csv", dangling.File)
}

func TestCoordinator_CheckEdge_UnboundGroup(t *testing.T) {
	c := NewCoordinator()
	require.NoError(t, c.BindGroup("concept", GroupConcept))
	require.NoError(t, c.RegisterNode(GroupConcept, "1001"))

	err := c.CheckEdge("rels_in_domain.csv", GroupConcept, "1001", GroupDomain, "Drug")
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}

func TestManifestValidate(t *testing.T) {
	c := boundCoordinator(t)

	m := newManifest("run-1", "|")
	m.AddNodeFile("nodes_concept.csv", labelStrategyPerRow, GroupConcept, 3)
	m.AddNodeFile("nodes_domain.csv", "Domain", GroupDomain, 2)
	m.AddEdgeFile("rels_in_domain.csv", "IN_DOMAIN", GroupConcept, GroupDomain, 3)
	assert.NoError(t, m.Validate(c))

	// An edge endpoint group with no node file behind it must fail, even
	// though the coordinator knows the group.
	m.AddEdgeFile("rels_from_vocabulary.csv", "FROM_VOCABULARY", GroupConcept, GroupVocabulary, 3)
	err := m.Validate(c)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}

func TestManifestValidate_UnboundNodeGroup(t *testing.T) {
	c := NewCoordinator()
	m := newManifest("run-1", "|")
	m.AddNodeFile("nodes_concept.csv", labelStrategyPerRow, GroupConcept, 1)
	err := m.Validate(c)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}
