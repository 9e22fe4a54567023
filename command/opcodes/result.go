package opcodes

import (
	"bytes"
	"fmt"

	"github.com/0xPolygon/polygon-evm/command/helper"
)

type OpcodeInfo struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Args     int     `json:"args"`
	Produced int     `json:"produced"`
	BaseGas  *uint64 `json:"baseGas,omitempty"`
	Since    string  `json:"since"`
}

type OpcodesResult struct {
	Schedule string       `json:"schedule"`
	Opcodes  []OpcodeInfo `json:"opcodes"`
}

func (r *OpcodesResult) GetOutput() string {
	var buffer bytes.Buffer

	rows := make([]string, 0, len(r.Opcodes)+1)
	rows = append(rows, "Code|Name|Args|Produced|Base gas|Since")

	for _, op := range r.Opcodes {
		gas := "dynamic"
		if op.BaseGas != nil {
			gas = fmt.Sprintf("%d", *op.BaseGas)
		}

		rows = append(rows, fmt.Sprintf("%s|%s|%d|%d|%s|%s", op.Code, op.Name, op.Args, op.Produced, gas, op.Since))
	}

	buffer.WriteString(fmt.Sprintf("\n[INSTRUCTIONS: %s]\n", r.Schedule))
	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}
