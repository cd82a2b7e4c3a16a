// Command detectctl bundles the offline tooling around detectd: annotation
// conversion, model training and Azure deployment.
package main

import "os"

func main() { os.Exit(MainWithArgs(os.Args[1:])) }
