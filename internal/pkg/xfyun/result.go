package xfyun

import (
	"encoding/json"
	"fmt"
	"strings"
)

type orderResult struct {
	Lattice []struct {
		JSON1Best string `json:"json_1best"`
	} `json:"lattice"`
}

type oneBest struct {
	St *struct {
		Rt []struct {
			Ws []struct {
				Cw []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"rt"`
	} `json:"st"`
}

// parseOrderResult joins best words of every lattice segment
func parseOrderResult(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("empty order result")
	}
	var or orderResult
	if err := json.Unmarshal([]byte(s), &or); err != nil {
		return "", fmt.Errorf("can't decode order result: %w", err)
	}
	res := strings.Builder{}
	for i, l := range or.Lattice {
		var ob oneBest
		if err := json.Unmarshal([]byte(l.JSON1Best), &ob); err != nil {
			return "", fmt.Errorf("can't decode lattice %d: %w", i, err)
		}
		if ob.St == nil || len(ob.St.Rt) == 0 {
			continue
		}
		seg := strings.Builder{}
		for _, w := range ob.St.Rt[0].Ws {
			if len(w.Cw) > 0 {
				seg.WriteString(w.Cw[0].W)
			}
		}
		res.WriteString(strings.TrimSpace(seg.String()))
	}
	return res.String(), nil
}
