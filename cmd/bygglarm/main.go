// Package main provides the entry point for the bygglarm CLI.
//
// bygglarm watches the Stockholm building permit registry for new cases on
// saved street and property searches, and crawls the city map's address
// suggestions into a local database of streets, properties and numbers.
//
// Usage:
//
//	bygglarm watch add --street "Brunnsgatan 1"
//	bygglarm watch run --schedule "@every 6h"
//	bygglarm crawl
//
// See --help for all available options.
package main

// main is the entry point for bygglarm.
func main() {
	Execute()
}
