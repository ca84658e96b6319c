package transform

import (
	"omop2neo4j/pkg/errors"
)

// GroupID names one of the bulk importer's id spaces. Every node id belongs
// to exactly one group and every edge endpoint is resolved against the group
// its node file declared. Mixing them up does not fail loudly in
// neo4j-admin; it imports wrong edges. The coordinator exists to make that
// impossible here.
type GroupID string

const (
	GroupConcept    GroupID = "concept-id"
	GroupDomain     GroupID = "domain-id"
	GroupVocabulary GroupID = "vocabulary-id"
)

// Coordinator tracks the semantic-domain-to-group binding and the full set
// of node ids emitted under each group. It is the single source of truth
// for id consistency; with one instance per run and a sequential pipeline
// no locking is needed.
type Coordinator struct {
	groupByDomain map[string]GroupID
	domainByGroup map[GroupID]string
	ids           map[GroupID]map[string]struct{}
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		groupByDomain: make(map[string]GroupID),
		domainByGroup: make(map[GroupID]string),
		ids:           make(map[GroupID]map[string]struct{}),
	}
}

// BindGroup declares that node ids from the given semantic domain (e.g.
// "concept") are emitted under the given group. Rebinding a domain to a
// different group, or sharing a group between two domains, is a fatal
// IdentityGroupError.
func (c *Coordinator) BindGroup(domain string, group GroupID) error {
	if have, ok := c.groupByDomain[domain]; ok && have != group {
		return errors.NewIdentityGroup(string(group),
			"domain "+domain+" already bound to group "+string(have))
	}
	if have, ok := c.domainByGroup[group]; ok && have != domain {
		return errors.NewIdentityGroup(string(group),
			"already bound to domain "+have+", cannot also hold "+domain)
	}
	c.groupByDomain[domain] = group
	c.domainByGroup[group] = domain
	if c.ids[group] == nil {
		c.ids[group] = make(map[string]struct{})
	}
	return nil
}

// RegisterNode records a node id emitted under a group. The group must have
// been bound first; a duplicate id within a group is fatal.
func (c *Coordinator) RegisterNode(group GroupID, id string) error {
	set, ok := c.ids[group]
	if !ok {
		return errors.NewIdentityGroup(string(group), "node emitted under unbound group")
	}
	if _, dup := set[id]; dup {
		return errors.NewIdentityGroup(string(group), "duplicate node id "+id)
	}
	set[id] = struct{}{}
	return nil
}

// HasGroup reports whether any node file declared the group.
func (c *Coordinator) HasGroup(group GroupID) bool {
	_, ok := c.ids[group]
	return ok
}

// NodeCount returns the number of ids registered under the group.
func (c *Coordinator) NodeCount(group GroupID) int {
	return len(c.ids[group])
}

// CheckEdge validates both endpoints of an edge record: each endpoint group
// must exist and hold the referenced id. file names the edge output file for
// error reporting.
func (c *Coordinator) CheckEdge(file string, startGroup GroupID, startID string, endGroup GroupID, endID string) error {
	if err := c.checkEndpoint(file, startGroup, startID); err != nil {
		return err
	}
	return c.checkEndpoint(file, endGroup, endID)
}

func (c *Coordinator) checkEndpoint(file string, group GroupID, id string) error {
	set, ok := c.ids[group]
	if !ok {
		return errors.NewIdentityGroup(string(group),
			"edge file "+file+" references a group with no node file")
	}
	if _, ok := set[id]; !ok {
		return errors.NewDanglingReference(file, string(group), id)
	}
	return nil
}
