package main

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/panics"
)

var (
	log   = logger.RegisterSubSystem("MINR")
	spawn = panics.GoroutineWrapperFunc(log)
)
