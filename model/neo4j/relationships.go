// model/neo4j/relationships.go
package modelgate_neo4j

// Relationship Types
const (
	// RelGovernedBy links a grant to the access policy that limits it
	RelGovernedBy = "GOVERNED_BY"
)
