package main

import "acidlab.dev/backend/cmd/app"

func main() {
	app.Run()
}
