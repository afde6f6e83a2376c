// Command composecheck validates a deployment descriptor: schema version,
// host port collisions, startup ordering and the middleware environment
// contract. With no -f it checks the built-in demo topology.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kailas-cloud/vecshard/internal/compose"
)

func main() {
	var (
		file      = flag.String("f", "", "Descriptor file to validate (default: built-in demo)")
		service   = flag.String("service", compose.MiddlewareService, "Middleware service name to check the env contract on")
		printDemo = flag.Bool("print-demo", false, "Print the built-in demo descriptor and exit")
	)
	flag.Parse()

	if *printDemo {
		data, err := compose.Demo().Marshal()
		if err != nil {
			log.Fatalf("render demo descriptor: %v", err)
		}
		fmt.Print(string(data))
		return
	}

	var (
		d   *compose.Descriptor
		err error
	)
	if *file != "" {
		d, err = compose.Load(*file)
		if err != nil {
			log.Fatalf("load %s: %v", *file, err)
		}
	} else {
		d = compose.Demo()
	}

	failed := false

	if err := d.Validate(); err != nil {
		log.Printf("FAIL descriptor: %v", err)
		failed = true
	} else {
		log.Printf("OK   descriptor: %d services", len(d.Services))
	}

	if order, err := d.StartupOrder(); err != nil {
		log.Printf("FAIL startup order: %v", err)
		failed = true
	} else {
		log.Printf("OK   startup order: %v", order)
	}

	if err := d.ValidateMiddlewareEnv(*service); err != nil {
		log.Printf("FAIL middleware env: %v", err)
		failed = true
	} else {
		log.Printf("OK   middleware env: %s", *service)
	}

	if failed {
		os.Exit(1)
	}
}
