// Copyright 2025 Allan Butler
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package neo4j stores the entity graph in a Neo4j database. Nodes carry the
// GroceryNode label plus their entity label, and edges are typed by relation,
// so the graph can be browsed with plain Cypher.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/allanbutler/kg-rag-grocery/core"
	"github.com/allanbutler/kg-rag-grocery/storage"
)

// Reserved node and relationship properties. Everything else on a node is
// part of its attribute bag.
const (
	propKey   = "_key"
	propLabel = "_label"
	propSeq   = "_seq"
)

const (
	DefaultDatabase = "neo4j"
	nodeLabel       = "GroceryNode"
)

// ErrInvalidGraph is returned when SaveGraph is given a node or edge whose
// type cannot be stored.
var ErrInvalidGraph = errors.New("invalid graph entry")

// GraphRepository implements storage.GraphRepository on Neo4j.
type GraphRepository struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// Option configures a GraphRepository.
type Option func(*GraphRepository)

// WithDatabase selects the Neo4j database. Default: "neo4j".
func WithDatabase(name string) Option {
	return func(r *GraphRepository) {
		if name != "" {
			r.database = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *GraphRepository) {
		r.logger = logger
	}
}

// Open connects to the Neo4j server at uri and ensures the node key index
// exists.
func Open(ctx context.Context, uri, username, password string, opts ...Option) (*GraphRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	r := &GraphRepository{
		driver:   driver,
		database: DefaultDatabase,
		logger:   slog.Default().With("component", "neo4j-graph"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	if err := r.ensureSchema(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return r, nil
}

func (r *GraphRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.database, AccessMode: mode})
}

func (r *GraphRepository) ensureSchema(ctx context.Context) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf("CREATE INDEX grocery_node_key IF NOT EXISTS FOR (n:%s) ON (n.%s)", nodeLabel, propKey)
	res, err := session.Run(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("creating node key index: %w", err)
	}
	_, err = res.Consume(ctx)
	return err
}

// Close closes the driver.
func (r *GraphRepository) Close() error {
	return r.driver.Close(context.Background())
}

// WithTransaction runs fn. Each SaveGraph is its own Neo4j transaction, so
// there is no enclosing transaction to join.
func (r *GraphRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// SaveGraph replaces every GroceryNode and its edges in one write transaction.
func (r *GraphRepository) SaveGraph(ctx context.Context, nodes []core.Node, edges []core.Edge) error {
	nodeGroups, err := nodeRows(nodes)
	if err != nil {
		return err
	}
	edgeGroups, err := edgeRows(edges)
	if err != nil {
		return err
	}

	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := run(ctx, tx, fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", nodeLabel), nil); err != nil {
			return nil, fmt.Errorf("clearing graph: %w", err)
		}
		for _, g := range nodeGroups {
			query := fmt.Sprintf("UNWIND $rows AS row CREATE (n:%s:%s) SET n = row", nodeLabel, g.name)
			if err := run(ctx, tx, query, map[string]any{"rows": g.rows}); err != nil {
				return nil, fmt.Errorf("writing %s nodes: %w", g.name, err)
			}
		}
		for _, g := range edgeGroups {
			query := fmt.Sprintf(`UNWIND $rows AS row
				MATCH (a:%[1]s {%[2]s: row.from}), (b:%[1]s {%[2]s: row.to})
				CREATE (a)-[:%[3]s {%[4]s: row.seq}]->(b)`, nodeLabel, propKey, g.name, propSeq)
			if err := run(ctx, tx, query, map[string]any{"rows": g.rows}); err != nil {
				return nil, fmt.Errorf("writing %s edges: %w", g.name, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("saved graph", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// LoadGraph reads every GroceryNode in save order and every edge between them.
func (r *GraphRepository) LoadGraph(ctx context.Context) ([]core.Node, []core.Edge, error) {
	session := r.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	nodes := []core.Node{}
	edges := []core.Edge{}
	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		nodes = nodes[:0]
		edges = edges[:0]

		res, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN n ORDER BY n.%s", nodeLabel, propSeq), nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			value, _ := rec.Get("n")
			n, ok := value.(dbtype.Node)
			if !ok {
				return nil, fmt.Errorf("unexpected type for node: got %T, expected dbtype.Node", value)
			}
			nodes = append(nodes, nodeFromProps(n.Props))
		}

		query := fmt.Sprintf(`MATCH (a:%[1]s)-[r]->(b:%[1]s)
			RETURN a.%[2]s AS from, b.%[2]s AS to, type(r) AS rel
			ORDER BY r.%[3]s`, nodeLabel, propKey, propSeq)
		res, err = tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err = res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			edges = append(edges, core.Edge{
				From:     recordString(rec, "from"),
				To:       recordString(rec, "to"),
				Relation: core.ParseRelation(recordString(rec, "rel")),
			})
		}
		return nil, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// rowGroup is a batch of UNWIND rows sharing one Cypher label or type.
type rowGroup struct {
	name string
	rows []map[string]any
}

// nodeRows groups node property maps by label, keeping first-seen label order.
func nodeRows(nodes []core.Node) ([]rowGroup, error) {
	var groups []rowGroup
	index := make(map[core.Label]int)
	for i := range nodes {
		n := &nodes[i]
		if !n.Label.Valid() || n.Key == "" {
			return nil, fmt.Errorf("%w: node %q", ErrInvalidGraph, n.Key)
		}
		gi, ok := index[n.Label]
		if !ok {
			gi = len(groups)
			index[n.Label] = gi
			groups = append(groups, rowGroup{name: n.Label.String()})
		}
		groups[gi].rows = append(groups[gi].rows, nodeProps(n, i))
	}
	return groups, nil
}

// edgeRows groups edges by relation type, keeping first-seen order.
func edgeRows(edges []core.Edge) ([]rowGroup, error) {
	var groups []rowGroup
	index := make(map[core.Relation]int)
	for i, e := range edges {
		if !e.Relation.Valid() {
			return nil, fmt.Errorf("%w: edge %s-%s", ErrInvalidGraph, e.From, e.To)
		}
		gi, ok := index[e.Relation]
		if !ok {
			gi = len(groups)
			index[e.Relation] = gi
			groups = append(groups, rowGroup{name: e.Relation.String()})
		}
		groups[gi].rows = append(groups[gi].rows, map[string]any{
			"from": e.From,
			"to":   e.To,
			"seq":  int64(i),
		})
	}
	return groups, nil
}

func nodeProps(n *core.Node, seq int) map[string]any {
	props := make(map[string]any, len(n.Attrs)+3)
	for k, v := range n.Attrs {
		if strings.HasPrefix(k, "_") {
			continue
		}
		props[k] = v
	}
	props[propKey] = n.Key
	props[propLabel] = n.Label.String()
	props[propSeq] = int64(seq)
	return props
}

// nodeFromProps rebuilds a node. Non-string properties are ignored.
func nodeFromProps(props map[string]any) core.Node {
	n := core.Node{Attrs: make(map[string]string, len(props))}
	for k, v := range props {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch k {
		case propKey:
			n.Key = s
		case propLabel:
			n.Label = core.ParseLabel(s)
		default:
			if !strings.HasPrefix(k, "_") {
				n.Attrs[k] = s
			}
		}
	}
	return n
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}
