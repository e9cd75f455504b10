package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/valoeghese/patchwork-patcher/internal/pipeline"
	"github.com/valoeghese/patchwork-patcher/internal/report"
	"github.com/valoeghese/patchwork-patcher/internal/ui"
)

func runTransformWithUI(ctx context.Context, run *transformRun, opts pipeline.Options, collector *report.Collector) error {
	events := make(chan pipeline.Event, 256)
	outcome := make(chan error, 1)

	opts.Progress = pipeline.SinkFunc(func(ev pipeline.Event) {
		collector.OnEvent(ev)
		events <- ev
	})
	go func() {
		err := run.execute(ctx, opts)
		close(events)
		outcome <- err
	}()

	names := make([]string, 0, len(run.classes))
	for _, c := range run.classes {
		names = append(names, c.Name)
	}
	program := tea.NewProgram(ui.NewProgressModel("patching", names, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		for range events {
		}
	}
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
