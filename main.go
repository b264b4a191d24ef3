package main

import "github.com/frahmantamala/timesheet-invoicing/cmd"

func main() {
	cmd.Execute()
}
