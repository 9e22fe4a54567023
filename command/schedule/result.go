package schedule

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/command/helper"
)

type ScheduleResult struct {
	Names    []string           `json:"names,omitempty"`
	Schedule *chain.GasSchedule `json:"schedule,omitempty"`
}

func (r *ScheduleResult) GetOutput() string {
	var buffer bytes.Buffer

	if r.Schedule == nil {
		buffer.WriteString("\n[GAS SCHEDULES]\n")
		buffer.WriteString(helper.FormatList(r.Names))
		buffer.WriteString("\n")

		return buffer.String()
	}

	rows, err := scheduleRows(r.Schedule)
	if err != nil {
		return err.Error()
	}

	buffer.WriteString(fmt.Sprintf("\n[GAS SCHEDULE: %s]\n", r.Schedule.Name))
	buffer.WriteString(helper.FormatKV(rows))
	buffer.WriteString("\n")

	return buffer.String()
}

// scheduleRows lists the fields of the schedule in declaration order, named
// as they are in schedule files
func scheduleRows(s *chain.GasSchedule) ([]string, error) {
	var node yaml.Node
	if err := node.Encode(s); err != nil {
		return nil, err
	}

	rows := make([]string, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if key.Value == "version" {
			rows = append(rows, fmt.Sprintf("version|%s", s.Version))

			continue
		}

		if value.Kind == yaml.SequenceNode {
			items := make([]string, len(value.Content))
			for j, item := range value.Content {
				items[j] = item.Value
			}

			rows = append(rows, fmt.Sprintf("%s|%s", key.Value, strings.Join(items, ",")))

			continue
		}

		rows = append(rows, fmt.Sprintf("%s|%s", key.Value, value.Value))
	}

	return rows, nil
}
