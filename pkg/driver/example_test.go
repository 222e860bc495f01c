package driver_test

import (
	"context"
	"fmt"

	"chatscrape/pkg/dom"
	"chatscrape/pkg/driver"
	"chatscrape/pkg/logger"
	"chatscrape/pkg/scanner"
)

func ExampleDriver_Run() {
	page := dom.NewStaticPage(`<html><head><title>Alice | Messenger</title></head><body>
<div role="log" data-cs-rect="300,0,700,800">
  <div role="row" data-cs-rect="300,50,700,40"><div data-cs-rect="310,50,120,30">are you coming tonight?</div></div>
  <div role="row" data-cs-rect="300,100,700,40"><div data-cs-rect="820,100,120,30">on my way</div></div>
</div></body></html>`)

	log := logger.NewNopLogger()
	d := driver.New(page, scanner.New(scanner.DefaultRules(), log), log)
	d.SetDispatcher(driver.DispatcherFunc(func(line string) {
		fmt.Println(line)
	}))

	opts := driver.DefaultOptions()
	opts.DelayMin, opts.DelayMax = 0, 0
	opts.NoProgressThreshold = 1

	completion, err := d.Run(context.Background(), opts)
	if err != nil {
		fmt.Println("failed:", err)
		return
	}
	fmt.Println(completion.Reason, completion.TotalItems)

	// Output:
	// You: on my way
	// Alice: are you coming tonight?
	// completed 2
}
