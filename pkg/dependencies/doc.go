// Package dependencies collects the third-party packages plugins declare and
// resolves duplicate declarations into one table.
//
// # Declaring Dependencies
//
// A plugin may define Dependencies in details.lua:
//
//	function Dependencies()
//		return {
//			npm = {
//				{ name = "eslint", version = "^9.0.0" },
//				{ name = "eslint-plugin-react", version = "latest" },
//			},
//		}
//	end
//
// # Resolution
//
// When several declarations share a manager and name, one wins:
//
//  1. "latest" beats any concrete version
//  2. of two semantic versions, the higher wins
//  3. an exact version beats a range (^, ~, *, x, or a >, <, = prefix)
//  4. of two ranges, the higher minimum bound wins
//  5. otherwise the first declaration is kept and a ParseError is reported
//
// Resolve is pure; Resolve(Resolve(t)) equals Resolve(t).
package dependencies
