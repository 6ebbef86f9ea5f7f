package object

/*
JSON EXAMPLE
{
    "status": "success",
    "data": {
        "resultType": "vector",
        "result": [
            {
                "metric": {
                    "__name__": "node_monitor",
                    "node": "node=test",
                    "pod": "web-7d9f",
                    "ready": "true",
                    "resource": "cpu",
                    "selector": "web"
                },
                "value": [
                    1652587093.695,
                    "43.5"
                ]
            }
        ]
    }
}
*/

type PromQueryRes struct {
	Status    string `json:"status"`
	ErrorType string `json:"errorType,omitempty"`
	Error     string `json:"error,omitempty"`
	Data      Data   `json:"data"`
}

type Data struct {
	ResultType  string   `json:"resultType"`
	ResultArray []Result `json:"result"`
}

type Result struct {
	Metric map[string]string `json:"metric"`
	// [unix seconds as number, sample value as string]
	Value []interface{} `json:"value"`
}
