package run

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/armon/go-metrics"

	"github.com/0xPolygon/polygon-evm/command/helper"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer/calltracer"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer/structtracer"
	"github.com/0xPolygon/polygon-evm/types"
)

type RunResult struct {
	Schedule       string         `json:"schedule"`
	Status         string         `json:"status"`
	Output         string         `json:"output"`
	GasUsed        uint64         `json:"gasUsed"`
	GasLeft        uint64         `json:"gasLeft"`
	Refund         uint64         `json:"refund"`
	Error          string         `json:"error,omitempty"`
	CreatedAddress *types.Address `json:"createdAddress,omitempty"`
	Logs           []*types.Log   `json:"logs,omitempty"`
	Trace          interface{}    `json:"trace,omitempty"`
	Metrics        []string       `json:"metrics,omitempty"`
	State          state.Alloc    `json:"state,omitempty"`
}

func newRunResult(schedule string, res *runtime.ExecutionResult) *RunResult {
	r := &RunResult{
		Schedule: schedule,
		Status:   res.Status().String(),
		Output:   hex.EncodeToHex(res.ReturnValue),
		GasUsed:  res.GasUsed,
		GasLeft:  res.GasLeft,
		Refund:   res.Refund(),
		Logs:     res.Logs,
	}

	if res.Err != nil {
		r.Error = res.Err.Error()
	}

	if res.Succeeded() && res.CreatedAddress != types.ZeroAddress {
		addr := res.CreatedAddress
		r.CreatedAddress = &addr
	}

	return r
}

func (r *RunResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := []string{
		fmt.Sprintf("Schedule|%s", r.Schedule),
		fmt.Sprintf("Status|%s", r.Status),
		fmt.Sprintf("Output|%s", r.Output),
		fmt.Sprintf("Gas used|%d", r.GasUsed),
		fmt.Sprintf("Gas left|%d", r.GasLeft),
		fmt.Sprintf("Refund|%d", r.Refund),
	}

	if r.Error != "" {
		rows = append(rows, fmt.Sprintf("Error|%s", r.Error))
	}

	if r.CreatedAddress != nil {
		rows = append(rows, fmt.Sprintf("Created address|%s", r.CreatedAddress))
	}

	buffer.WriteString("\n[EXECUTION RESULT]\n")
	buffer.WriteString(helper.FormatKV(rows))
	buffer.WriteString("\n")

	if len(r.Logs) != 0 {
		buffer.WriteString("\n[LOGS]\n")
		buffer.WriteString(formatLogs(r.Logs))
		buffer.WriteString("\n")
	}

	switch trace := r.Trace.(type) {
	case *structtracer.StructTraceResult:
		buffer.WriteString("\n[TRACE]\n")
		buffer.WriteString(formatStructTrace(trace))
		buffer.WriteString("\n")
	case *calltracer.Call:
		buffer.WriteString("\n[CALLS]\n")
		buffer.WriteString(helper.FormatList(formatCalls(trace, 0, []string{"Type|From|To|Gas|Gas used|Error"})))
		buffer.WriteString("\n")
	}

	if len(r.Metrics) != 0 {
		buffer.WriteString("\n[METRICS]\n")
		buffer.WriteString(helper.FormatKV(r.Metrics))
		buffer.WriteString("\n")
	}

	if len(r.State) != 0 {
		buffer.WriteString("\n[POST STATE]\n")
		buffer.WriteString(formatAlloc(r.State))
		buffer.WriteString("\n")
	}

	return buffer.String()
}

func formatLogs(logs []*types.Log) string {
	rows := []string{"Address|Topics|Data"}

	for _, l := range logs {
		topics := make([]string, len(l.Topics))
		for i, topic := range l.Topics {
			topics[i] = topic.String()
		}

		rows = append(rows, fmt.Sprintf("%s|%s|%s", l.Address, strings.Join(topics, ","), l.Data))
	}

	return helper.FormatList(rows)
}

func formatStructTrace(trace *structtracer.StructTraceResult) string {
	rows := []string{"PC|Op|Gas|Cost|Depth|Stack top|Error"}

	for _, l := range trace.StructLogs {
		top := ""
		if n := len(l.Stack); n != 0 {
			top = l.Stack[n-1]
		}

		rows = append(rows, fmt.Sprintf("%d|%s|%d|%d|%d|%s|%s", l.Pc, l.Op, l.Gas, l.GasCost, l.Depth, top, l.Error))
	}

	return helper.FormatList(rows)
}

func formatCalls(call *calltracer.Call, depth int, rows []string) []string {
	if call == nil {
		return rows
	}

	rows = append(rows, fmt.Sprintf("%s%s|%s|%s|%s|%s|%s",
		strings.Repeat("  ", depth), call.Type, call.From, call.To, call.Gas, call.GasUsed, call.Error))

	for _, sub := range call.Calls {
		rows = formatCalls(sub, depth+1, rows)
	}

	return rows
}

func formatAlloc(alloc state.Alloc) string {
	addrs := make([]types.Address, 0, len(alloc))
	for addr := range alloc {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	var buffer bytes.Buffer

	for _, addr := range addrs {
		acct := alloc[addr]

		rows := []string{
			fmt.Sprintf("Address|%s", addr),
			fmt.Sprintf("Balance|%s", acct.Balance),
			fmt.Sprintf("Nonce|%d", acct.Nonce),
			fmt.Sprintf("Code|%s", acct.Code),
		}

		keys := make([]types.Hash, 0, len(acct.Storage))
		for k := range acct.Storage {
			keys = append(keys, k)
		}

		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(keys[i][:], keys[j][:]) < 0
		})

		for _, k := range keys {
			rows = append(rows, fmt.Sprintf("Storage %s|%s", k, acct.Storage[k]))
		}

		buffer.WriteString(helper.FormatKV(rows))
		buffer.WriteString("\n\n")
	}

	return strings.TrimSuffix(buffer.String(), "\n\n")
}

// collectMetrics flattens the counters and samples gathered during the run
func collectMetrics(sink *metrics.InmemSink) []string {
	rows := []string{}

	for _, interval := range sink.Data() {
		for name, counter := range interval.Counters {
			rows = append(rows, fmt.Sprintf("%s|%.0f", name, counter.Sum))
		}

		for name, sample := range interval.Samples {
			rows = append(rows, fmt.Sprintf("%s|count=%d sum=%.0f max=%.0f", name, sample.Count, sample.Sum, sample.Max))
		}
	}

	sort.Strings(rows)

	return rows
}
