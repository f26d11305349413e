package poolclient

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
)

var log = logger.RegisterSubSystem("POOL")
