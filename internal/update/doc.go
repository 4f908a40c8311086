// Package update implements the self-update engine.
//
// This package handles:
//   - Parsing and ordering four-component versions (major.minor.build.revision)
//   - Parsing the plaintext update manifest (download URL, version, update kind)
//   - Fetching the manifest and the replacement binary with progress reporting
//   - Classifying updates as patch (automatic) or major (requires consent)
//   - Handing the downloaded binary to a detached helper that swaps it in
//
// The package is isolated from UI concerns. The Engine reports everything
// through the Notifier interface, which a shell implements however it wants.
//
// Example usage:
//
//	engine, err := update.NewEngine(update.EngineConfig{
//	    ManifestURL:    manifestURL,
//	    CurrentVersion: current,
//	    Transport:      update.NewHTTPTransport(),
//	    Installer:      update.NewScriptInstaller(),
//	    Notifier:       notifier,
//	    Terminate:      quit,
//	})
//	if err != nil {
//	    // handle error
//	}
//	go engine.Run(ctx)
package update
