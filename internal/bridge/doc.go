// Package bridge talks to the external image worker over JSON-RPC 2.0.
//
// The worker is a long-lived child process (typically a Python program wrapping
// the shoreline toolbox) that reads one JSON-RPC request per line on stdin and
// writes one response per line on stdout. Its stderr is forwarded to the batch
// log.
//
// # Methods
//
//   - imagery/check: {"inputs": Inputs} -> bool
//   - imagery/retrieve: {"inputs": Inputs} -> Metadata
//   - imagery/metadata: {"inputs": Inputs} -> Metadata
//   - imagery/previews: {"metadata": Metadata, "settings": Settings} -> null
//   - shorelines/extract: {"metadata": Metadata, "settings": Settings} -> Output
//
// Metadata and Output travel as column documents (see package imagery).
//
// # Errors
//
// A response error with code -32010 means no imagery matches the request and
// is returned as imagery.ErrNoImagery. Any other error code is returned as a
// *RPCError.
//
// # Notifications
//
// The worker may send notifications (messages without an id) while a call is
// in progress, e.g. "notifications/progress" with {"message": "..."}. They are
// logged at debug level and otherwise ignored.
//
// # Usage
//
//	w, err := bridge.Start(ctx, []string{"python3", "-m", "coastsat_worker"}, "", logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	ok, err := w.CheckAvailability(ctx, inputs)
package bridge
