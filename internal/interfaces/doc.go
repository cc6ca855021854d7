// Package interfaces holds compile-time checks for the seams between the
// librarian packages.
//
// Each consumer declares the small interface it needs next to the code that
// uses it (circulation.Recorder, tasks.InventoryChecker, http.Pinger and so
// on). The concrete implementations live elsewhere and are wired together in
// internal/entrypoint. Nothing imports this package; it exists so that
// building ./... fails when an implementation drifts from an interface.
//
// # Adding a New Seam
//
//  1. Declare the interface in the consuming package, with only the methods
//     it calls:
//
//     type Recorder interface {
//     LogRestock(userID, bookID uint, delta int, err error)
//     }
//
//  2. Accept it in the constructor and allow nil where the dependency is
//     optional.
//
//  3. Add a check to checks.go:
//
//     var _ circulation.Recorder = (*audit.Service)(nil)
//
// # Compile-Time Interface Checks
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
