package orchestrator

import "context"

// Run drives Tick until it returns an outcome other than Continue, or
// tickCount reaches maxTicks. Hitting maxTicks without reaching a terminal
// outcome returns a synthetic EXTERNAL_ERROR — the protocol made no
// progress for an entire budget of ticks, which is itself a signal
// something upstream (a collaborator, a misconfigured guard) is stuck.
func Run(ctx context.Context, tc TickContext, maxTicks int) (RunResult, error) {
	for i := 0; i < maxTicks; i++ {
		result, err := Tick(ctx, tc)
		if err != nil {
			return RunResult{Context: result.Context, Outcome: OutcomeFailed, TickCount: i + 1}, err
		}
		tc = result.Context
		if result.Outcome != OutcomeContinue {
			return RunResult{Context: tc, Outcome: result.Outcome, TickCount: i + 1}, nil
		}
	}
	return RunResult{Context: tc, Outcome: OutcomeExternalError, TickCount: maxTicks}, nil
}
