// Package drift is a client for the drift conversation service.
//
// The backend routes chat messages into topic branches, extracts facts per
// branch and serves the context of a branch. This package wraps its HTTP API
// and assembles the returned context into a system prompt plus message list
// for a downstream language model:
//
//	client, err := drift.New("https://drift.example.com", os.Getenv("DRIFT_API_KEY"))
//	if err != nil {
//		return err
//	}
//	res, err := client.Route(ctx, drift.RouteRequest{ConversationID: convID, Content: input})
//	if err != nil {
//		return err
//	}
//	prompt, err := client.BuildPrompt(ctx, res.BranchID, drift.WithSystemPrompt("You are a support agent."))
//
// Every call is a single attempt bounded by Config.Timeout. Failures are
// returned as *APIError (reported by the backend), *DecodeError (body was not
// JSON), an error matching ErrTimeout, or the underlying transport error.
package drift
