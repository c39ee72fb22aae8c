// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the modload command-line interface.
//
// Commands:
//
//	modload run <specifier>        load a module and print its namespace as JSON
//	modload resolve <specifier>    print the canonical path a specifier maps to
//	modload modules <specifier>... load modules and list the registry
//	modload graph <specifier>...   print the import graph in evaluation order
//	modload builtins               list the compiled-in modules
//	modload config show|init|path  inspect or create the configuration file
//	modload explain [topic]        show long-form help for a failure class
package cmd
