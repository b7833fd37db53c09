package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/theapemachine/hivemind/pkg/graph"
)

const writeTimeout = 5 * time.Second

/*
Client writes to Neo4j over Bolt. It doubles as a graph.Mirror, so every edge
added to the in-process graph can be replayed into a Neo4j database for
inspection with the usual Neo4j tooling.
*/
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	run      func(ctx context.Context, cypher string, params map[string]any) error
}

/*
New creates a driver for uri (bolt:// or neo4j://). No connection is made
until the first write; use Verify to check the server up front.
*/
func New(uri, user, pass string) (*Client, error) {
	auth := neo4j.NoAuth()

	if user != "" {
		auth = neo4j.BasicAuth(user, pass, "")
	}

	driver, err := neo4j.NewDriverWithContext(uri, auth)

	if err != nil {
		return nil, fmt.Errorf("neo4j: connect %s: %w", uri, err)
	}

	client := &Client{driver: driver, database: "neo4j"}
	client.run = client.execute

	return client, nil
}

/*
MirrorEdge merges both endpoints and the relationship between them. The
relation label is kept as a property because Cypher cannot parameterize
relationship types.
*/
func (client *Client) MirrorEdge(ctx context.Context, edge graph.Edge) error {
	return client.write(ctx, mergeEdge, map[string]any{
		"subject":  edge.Subject,
		"object":   edge.Object,
		"relation": edge.Relation,
	})
}

// Reset removes every mirrored entity along with its relationships.
func (client *Client) Reset(ctx context.Context) error {
	return client.write(ctx, deleteAll, nil)
}

func (client *Client) Verify(ctx context.Context) error {
	return client.driver.VerifyConnectivity(ctx)
}

func (client *Client) Close(ctx context.Context) error {
	return client.driver.Close(ctx)
}

func (client *Client) write(ctx context.Context, cypher string, params map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := client.run(ctx, cypher, params); err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}

	return nil
}

func (client *Client) execute(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(
		ctx, client.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(client.database),
	)

	return err
}

const mergeEdge = `MERGE (s:Entity {name: $subject})
MERGE (o:Entity {name: $object})
MERGE (s)-[r:RELATES_TO]->(o)
SET r.relation = $relation`

const deleteAll = `MATCH (e:Entity) DETACH DELETE e`
