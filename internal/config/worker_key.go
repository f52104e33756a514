package config

type WorkerKeyStruct struct {
	EnrollmentMailQueue string
}

var WorkerKey = &WorkerKeyStruct{
	EnrollmentMailQueue: "enrollment_mail_queue",
}
