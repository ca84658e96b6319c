package transform

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"omop2neo4j/pkg/errors"
	"omop2neo4j/pkg/logger"
)

// Source file names produced by the extraction step.
const (
	srcConcepts     = "concepts_optimized.csv"
	srcDomains      = "domain.csv"
	srcVocabularies = "vocabulary.csv"
	srcRelationship = "concept_relationship.csv"
	srcAncestor     = "concept_ancestor.csv"
)

// Import file names consumed by neo4j-admin.
const (
	outConceptNodes    = "nodes_concept.csv"
	outDomainNodes     = "nodes_domain.csv"
	outVocabularyNodes = "nodes_vocabulary.csv"
	outInDomainRels    = "rels_in_domain.csv"
	outFromVocabRels   = "rels_from_vocabulary.csv"
	outSemanticRels    = "rels_semantic.csv"
	outAncestorRels    = "rels_ancestor.csv"
)

// Options configures one bulk-import preparation run. Everything is passed
// explicitly; the pipeline reads no ambient state.
type Options struct {
	SourceDir        string
	ImportDir        string
	ChunkSize        int
	SynonymDelimiter string
	// Lenient skips and counts malformed rows instead of aborting on the
	// first one. Identity and grouping violations abort regardless.
	Lenient      bool
	DatabaseName string
	RunID        string
}

// Result summarizes a completed run.
type Result struct {
	Manifest     *Manifest
	ManifestPath string
	Command      string
	// SkippedRows counts lenient-mode skips per source file.
	SkippedRows  map[string]int64
	TotalSkipped int64
}

type pipeline struct {
	opts  Options
	t     *Transformer
	coord *Coordinator
	m     *Manifest
	log   *zap.Logger

	skipped map[string]int64
}

// PrepareBulkImport runs the full relational-to-graph transformation: nodes
// first (domain, vocabulary, concept), then edges, each file streamed in
// bounded row windows, with the coordinator validating every id along the
// way. It returns the manifest and the synthesized neo4j-admin command.
func PrepareBulkImport(opts Options) (*Result, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 100000
	}
	if opts.SynonymDelimiter == "" {
		opts.SynonymDelimiter = "|"
	}
	if opts.DatabaseName == "" {
		opts.DatabaseName = "neo4j"
	}

	p := &pipeline{
		opts:    opts,
		t:       NewTransformer(opts.SynonymDelimiter),
		coord:   NewCoordinator(),
		m:       newManifest(opts.RunID, opts.SynonymDelimiter),
		log:     logger.Get(),
		skipped: make(map[string]int64),
	}

	if err := p.preflight(); err != nil {
		return nil, err
	}

	for domain, group := range map[string]GroupID{
		"concept":    GroupConcept,
		"domain":     GroupDomain,
		"vocabulary": GroupVocabulary,
	} {
		if err := p.coord.BindGroup(domain, group); err != nil {
			return nil, err
		}
	}

	// Node files must be complete before any edge file is processed: edge
	// validation needs the full node identity space.
	if err := p.processDomains(); err != nil {
		return nil, err
	}
	if err := p.processVocabularies(); err != nil {
		return nil, err
	}
	if err := p.processConcepts(); err != nil {
		return nil, err
	}
	if err := p.processRelationships(); err != nil {
		return nil, err
	}
	if err := p.processAncestors(); err != nil {
		return nil, err
	}

	if err := p.m.Validate(p.coord); err != nil {
		return nil, err
	}
	command, err := SynthesizeCommand(p.m, p.opts.DatabaseName)
	if err != nil {
		return nil, err
	}
	manifestPath, err := p.m.Write(p.opts.ImportDir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Manifest:     p.m,
		ManifestPath: manifestPath,
		Command:      command,
		SkippedRows:  p.skipped,
	}
	for _, n := range p.skipped {
		result.TotalSkipped += n
	}
	p.log.Info("Bulk import preparation complete",
		zap.String("import_dir", p.opts.ImportDir),
		zap.Int("concept_nodes", p.coord.NodeCount(GroupConcept)),
		zap.Int("domain_nodes", p.coord.NodeCount(GroupDomain)),
		zap.Int("vocabulary_nodes", p.coord.NodeCount(GroupVocabulary)),
		zap.Int64("skipped_rows", result.TotalSkipped),
	)
	return result, nil
}

// preflight verifies every source file exists and the import directory is
// writable before any output is truncated.
func (p *pipeline) preflight() error {
	for _, name := range []string{srcDomains, srcVocabularies, srcConcepts, srcRelationship, srcAncestor} {
		path := filepath.Join(p.opts.SourceDir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("source file missing: %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(p.opts.ImportDir, 0o755); err != nil {
		return fmt.Errorf("creating import directory %s: %w", p.opts.ImportDir, err)
	}
	return nil
}

func (p *pipeline) src(name string) string {
	return filepath.Join(p.opts.SourceDir, name)
}

func (p *pipeline) out(name string) string {
	return filepath.Join(p.opts.ImportDir, name)
}

// forEachRow streams src in chunk-sized windows and applies fn to every row.
// Row parse errors are fatal unless lenient mode is on, in which case they
// are logged with file and row index and counted. All other errors abort.
// The given outputs are flushed at each window boundary.
func (p *pipeline) forEachRow(srcName string, outputs []*outputFile, fn func(v rowView) error) error {
	cr, err := openChunkReader(p.src(srcName))
	if err != nil {
		return err
	}
	defer cr.Close()

	base := 0
	for {
		rows, err := cr.Next(p.opts.ChunkSize)
		if err != nil {
			return err
		}
		if rows == nil {
			break
		}
		for i, row := range rows {
			v := cr.view(row, base+i+1)
			if err := fn(v); err != nil {
				var rowErr *errors.RowParseError
				if p.opts.Lenient && stderrors.As(err, &rowErr) {
					p.skipped[srcName]++
					p.log.Warn("Skipping malformed row",
						zap.String("file", srcName),
						zap.Int("row", v.num),
						zap.Error(err),
					)
					continue
				}
				return err
			}
		}
		base += len(rows)
		for _, o := range outputs {
			if err := o.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pipeline) processDomains() error {
	p.log.Info("Processing domain nodes")
	out, err := newOutputFile(p.out(outDomainNodes), domainHeader)
	if err != nil {
		return err
	}
	defer out.Close()

	err = p.forEachRow(srcDomains, []*outputFile{out}, func(v rowView) error {
		record, id, err := p.t.DomainRow(v)
		if err != nil {
			return err
		}
		if err := p.coord.RegisterNode(GroupDomain, id); err != nil {
			return err
		}
		return out.Write(record)
	})
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	p.m.AddNodeFile(outDomainNodes, "Domain", GroupDomain, out.rows)
	return nil
}

func (p *pipeline) processVocabularies() error {
	p.log.Info("Processing vocabulary nodes")
	out, err := newOutputFile(p.out(outVocabularyNodes), vocabularyHeader)
	if err != nil {
		return err
	}
	defer out.Close()

	err = p.forEachRow(srcVocabularies, []*outputFile{out}, func(v rowView) error {
		record, id, err := p.t.VocabularyRow(v)
		if err != nil {
			return err
		}
		if err := p.coord.RegisterNode(GroupVocabulary, id); err != nil {
			return err
		}
		return out.Write(record)
	})
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	p.m.AddNodeFile(outVocabularyNodes, "Vocabulary", GroupVocabulary, out.rows)
	return nil
}

// processConcepts writes the concept node file and, in the same pass, the
// two implicit membership edge files. Domain and vocabulary ids are already
// registered, so membership endpoints are validated as they are emitted.
func (p *pipeline) processConcepts() error {
	p.log.Info("Processing concept nodes", zap.Int("chunk_size", p.opts.ChunkSize))
	nodes, err := newOutputFile(p.out(outConceptNodes), conceptHeader)
	if err != nil {
		return err
	}
	defer nodes.Close()
	inDomain, err := newOutputFile(p.out(outInDomainRels), inDomainHeader)
	if err != nil {
		return err
	}
	defer inDomain.Close()
	fromVocab, err := newOutputFile(p.out(outFromVocabRels), fromVocabularyHeader)
	if err != nil {
		return err
	}
	defer fromVocab.Close()

	outputs := []*outputFile{nodes, inDomain, fromVocab}
	err = p.forEachRow(srcConcepts, outputs, func(v rowView) error {
		rec, err := p.t.ConceptRow(v)
		if err != nil {
			return err
		}
		if err := p.coord.RegisterNode(GroupConcept, rec.id); err != nil {
			return err
		}
		if err := nodes.Write(rec.node); err != nil {
			return err
		}
		domainEdge := p.t.InDomainEdge(rec)
		if err := p.coord.CheckEdge(outInDomainRels, GroupConcept, domainEdge.startID, GroupDomain, domainEdge.endID); err != nil {
			return err
		}
		if err := inDomain.Write(domainEdge.fields); err != nil {
			return err
		}
		vocabEdge := p.t.FromVocabularyEdge(rec)
		if err := p.coord.CheckEdge(outFromVocabRels, GroupConcept, vocabEdge.startID, GroupVocabulary, vocabEdge.endID); err != nil {
			return err
		}
		return fromVocab.Write(vocabEdge.fields)
	})
	if err != nil {
		return err
	}
	for _, o := range outputs {
		if err := o.Close(); err != nil {
			return err
		}
	}
	p.m.AddNodeFile(outConceptNodes, labelStrategyPerRow, GroupConcept, nodes.rows)
	p.m.AddEdgeFile(outInDomainRels, "IN_DOMAIN", GroupConcept, GroupDomain, inDomain.rows)
	p.m.AddEdgeFile(outFromVocabRels, "FROM_VOCABULARY", GroupConcept, GroupVocabulary, fromVocab.rows)
	return nil
}

func (p *pipeline) processRelationships() error {
	p.log.Info("Processing semantic relationships", zap.Int("chunk_size", p.opts.ChunkSize))
	out, err := newOutputFile(p.out(outSemanticRels), semanticHeader)
	if err != nil {
		return err
	}
	defer out.Close()

	err = p.forEachRow(srcRelationship, []*outputFile{out}, func(v rowView) error {
		rec, err := p.t.RelationshipRow(v)
		if err != nil {
			return err
		}
		if err := p.coord.CheckEdge(outSemanticRels, GroupConcept, rec.startID, GroupConcept, rec.endID); err != nil {
			return err
		}
		return out.Write(rec.fields)
	})
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	p.m.AddEdgeFile(outSemanticRels, "per-row :TYPE column", GroupConcept, GroupConcept, out.rows)
	return nil
}

func (p *pipeline) processAncestors() error {
	p.log.Info("Processing ancestry relationships", zap.Int("chunk_size", p.opts.ChunkSize))
	out, err := newOutputFile(p.out(outAncestorRels), ancestorHeader)
	if err != nil {
		return err
	}
	defer out.Close()

	err = p.forEachRow(srcAncestor, []*outputFile{out}, func(v rowView) error {
		rec, err := p.t.AncestorRow(v)
		if err != nil {
			return err
		}
		if err := p.coord.CheckEdge(outAncestorRels, GroupConcept, rec.startID, GroupConcept, rec.endID); err != nil {
			return err
		}
		return out.Write(rec.fields)
	})
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	p.m.AddEdgeFile(outAncestorRels, "HAS_ANCESTOR", GroupConcept, GroupConcept, out.rows)
	return nil
}
