package graph

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE CONSTRAINT memory_id IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE`,
	`CREATE CONSTRAINT entity_name IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`,
	`CREATE CONSTRAINT tag_name IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE`,
	`CREATE CONSTRAINT project_name IF NOT EXISTS FOR (p:Project) REQUIRE p.name IS UNIQUE`,
	`CREATE CONSTRAINT session_id IF NOT EXISTS FOR (s:Session) REQUIRE s.id IS UNIQUE`,
	`CREATE FULLTEXT INDEX memory_fulltext IF NOT EXISTS FOR (m:Memory) ON EACH [m.content, m.summary]`,
	`CREATE FULLTEXT INDEX entity_fulltext IF NOT EXISTS FOR (e:Entity) ON EACH [e.name]`,
}

// EnsureSchema creates the constraints and fulltext indexes the store
// queries rely on. Idempotent; safe to run on every deploy.
func (g *Neo4jStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := g.run(ctx, stmt, nil, nil); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	g.logger.Info("graph schema ensured", "statements", len(schemaStatements))
	return nil
}
