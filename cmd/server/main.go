package main

import (
	"go.uber.org/fx"

	"github.com/imsebeom/ai-survey/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
