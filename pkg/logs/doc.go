// Package logs provides the shared log sink that every plugin job reports into.
//
// # Overview
//
// A Sink keeps an ordered, in-memory list of (kind, message) events so that an
// interactive front end can render them, persists every event to a rotating log
// file, and mirrors each event to a logrus logger for structured output.
//
// The Sink is the only mutable resource shared between scheduler workers. Append
// and Snapshot take the same lock, which is held only for the in-memory append
// and the persisted write.
//
// # Usage Example
//
//	sink := logs.NewFileSink(".flint/logs.txt", logrus.New())
//	defer sink.Close()
//
//	sink.Append(logs.Info, "Generating eslint config")
//	sink.AppendEntry(logs.Entry{Kind: logs.Success, PluginID: "eslint", Message: "done"})
//
//	for _, e := range sink.Snapshot() {
//		fmt.Println(e)
//	}
package logs
