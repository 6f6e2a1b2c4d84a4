package main

import "github.com/evanofslack/aliyun-pvtz-sync/cmd"

func main() {
	cmd.Execute()
}
