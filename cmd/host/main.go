package main

import "github.com/nrawrx3/unolink/admin"

func main() {
	admin.RunApp()
}
