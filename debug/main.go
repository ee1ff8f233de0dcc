package main

import (
	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/server"
	"github.com/sirupsen/logrus"
)

func main() {
	err := server.Start(config.LoadConfig())
	if err != nil {
		logrus.Fatal(err)
	}
}
