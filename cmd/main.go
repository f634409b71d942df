package main

import (
	"github.com/everestmart/delivery-svc/internal/app"
	"github.com/everestmart/delivery-svc/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
