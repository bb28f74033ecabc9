package main

import (
	"fmt"
	"os"

	"github.com/kaytu-io/news-assistant/services/assistant"
)

func main() {
	if err := assistant.Command().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
