// model/neo4j/nodes.go
package modelgate_neo4j

// Node Labels
const (
	// LabelAccessPolicy is a daily/monthly call ceiling shared by grants
	LabelAccessPolicy = "ACCESS_POLICY"

	// LabelGrant pairs one user with one model
	LabelGrant = "GRANT"

	// LabelJob is one admitted service call
	LabelJob = "JOB"
)
