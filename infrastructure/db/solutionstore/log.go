package solutionstore

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
)

var log = logger.RegisterSubSystem("SLST")
