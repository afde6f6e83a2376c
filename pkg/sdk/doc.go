// Package vecshard provides a Go client for the vecshard sharding middleware.
//
// The middleware fronts a pool of vector-engine nodes: writes go to the
// writable node, searches scatter across the read shards and come back as a
// single merged top-k list. The client speaks the middleware's HTTP API.
//
//	client, _ := vecshard.New("http://localhost:19530",
//	    vecshard.WithAPIKey("secret"),
//	)
//	_ = client.CreateCollection(ctx, "docs", 4, "ip")
//	_ = client.UpsertPoints(ctx, "docs", []vecshard.Point{
//	    {ID: "a", Vector: []float32{1, 0, 0, 0}},
//	})
//	hits, _ := client.Search(ctx, "docs", vecshard.SearchRequest{
//	    Vector: []float32{1, 0, 0, 0},
//	    TopK:   10,
//	})
package vecshard
