package main

import "github.com/uyouii/weather-calibration/cli"

func main() {
	cli.Execute()
}
