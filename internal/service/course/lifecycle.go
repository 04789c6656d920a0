// Package course 提供试听课、正课、续课的创建、转化和生命周期管理
package course

import "github.com/dumeirei/edu-backoffice/internal/models"

// trialTransitions 试听课状态流转表，未列出的状态为终态
var trialTransitions = map[string]map[string]bool{
	models.TrialStatusRegistered: {
		models.TrialStatusScheduled:    true,
		models.TrialStatusCompleted:    true,
		models.TrialStatusConverted:    true,
		models.TrialStatusRefunded:     true,
		models.TrialStatusNoAction:     true,
		models.TrialStatusMisOperation: true,
	},
	models.TrialStatusScheduled: {
		models.TrialStatusCompleted: true,
		models.TrialStatusNoAction:  true,
		models.TrialStatusRefunded:  true,
	},
	models.TrialStatusCompleted: {
		models.TrialStatusConverted: true,
		models.TrialStatusNoAction:  true,
		models.TrialStatusRefunded:  true,
	},
}

// initialStatuses 创建试听课时允许的状态
var initialStatuses = map[string]bool{
	models.TrialStatusRegistered:    true,
	models.TrialStatusNotRegistered: true,
	models.TrialStatusScheduled:     true,
	models.TrialStatusCompleted:     true,
}

var allStatuses = map[string]bool{
	models.TrialStatusRegistered:    true,
	models.TrialStatusNotRegistered: true,
	models.TrialStatusScheduled:     true,
	models.TrialStatusCompleted:     true,
	models.TrialStatusConverted:     true,
	models.TrialStatusRefunded:      true,
	models.TrialStatusNoAction:      true,
	models.TrialStatusMisOperation:  true,
}

// CanTransition 判断试听课状态能否从 from 流转到 to
func CanTransition(from, to string) bool {
	return trialTransitions[from][to]
}

// IsTerminal 终态不允许再流转
func IsTerminal(status string) bool {
	return len(trialTransitions[status]) == 0
}

// IsValidStatus 是否为已知的试听课状态
func IsValidStatus(status string) bool {
	return allStatuses[status]
}

// IsInitialStatus 是否为允许的初始状态
func IsInitialStatus(status string) bool {
	return initialStatuses[status]
}
