package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/wmbus.go/pkg/framework"
	"github.com/robotalks/wmbus.go/pkg/gateway"
)

var configFile string

func init() {
	gateway.SetupFlags()
	flag.StringVar(&configFile, "config", configFile, "TOML config file.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := gateway.Default()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			glog.Exit(err)
		}
	}
	g, err := gateway.New(conf)
	if err != nil {
		glog.Exit(err)
	}
	defer g.Close()

	err = framework.NewRunner().
		HandleSignals().
		Go(framework.NamedRun("gateway", g)).
		Wait()
	if err != nil {
		glog.Error(err)
	}
}
